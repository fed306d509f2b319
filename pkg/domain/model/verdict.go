package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// ErrSchemaViolation is returned when a model answer does not follow the verdict contract
var ErrSchemaViolation = goerr.New("verdict schema violation")

// RiskLevel classifies the impact of a dependency upgrade
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Valid reports whether the level is one of Low, Medium or High
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	default:
		return false
	}
}

// DependencyChange identifies one upgraded library
type DependencyChange struct {
	GroupID    string `json:"groupId" firestore:"groupId"`
	ArtifactID string `json:"artifactId" firestore:"artifactId"`
	OldVersion string `json:"oldVersion" firestore:"oldVersion"`
	NewVersion string `json:"newVersion" firestore:"newVersion"`
}

// CommitInfo is the version-control provenance of a usage record
type CommitInfo struct {
	CommitID string `json:"commitId" firestore:"commitId"`
	JiraID   string `json:"jiraId" firestore:"jiraId"`
	Author   string `json:"author" firestore:"author"`
}

// UsageRecord is one source file directly referencing the changed dependency
type UsageRecord struct {
	Class          string      `json:"class" firestore:"class"`
	Path           string      `json:"path" firestore:"path"`
	LastCommitInfo *CommitInfo `json:"lastCommitInfo,omitempty" firestore:"lastCommitInfo,omitempty"`
}

// RiskVerdict is the terminal artifact of the assessment pipeline
type RiskVerdict struct {
	RiskLevel RiskLevel         `json:"riskLevel" firestore:"riskLevel"`
	Comments  string            `json:"comments" firestore:"comments"`
	Usage     []UsageRecord     `json:"usage" firestore:"usage"`
	Changes   *DependencyChange `json:"changes" firestore:"changes"`
}

var verdictKeys = []string{"riskLevel", "comments", "usage", "changes"}

// DecodeVerdict strictly decodes a verdict. Unknown keys, missing keys and values
// outside the contract are reported as ErrSchemaViolation.
func DecodeVerdict(data []byte) (*RiskVerdict, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, goerr.Wrap(ErrSchemaViolation, "verdict is not a JSON object",
			goerr.V("cause", err.Error()))
	}
	for _, key := range verdictKeys {
		if _, ok := keys[key]; !ok {
			return nil, goerr.Wrap(ErrSchemaViolation, "verdict key is missing", goerr.V("key", key))
		}
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var verdict RiskVerdict
	if err := decoder.Decode(&verdict); err != nil {
		return nil, goerr.Wrap(ErrSchemaViolation, "failed to decode verdict",
			goerr.V("cause", err.Error()))
	}

	if err := verdict.Validate(); err != nil {
		return nil, err
	}
	return &verdict, nil
}

// Validate checks the verdict against the output contract
func (v *RiskVerdict) Validate() error {
	if !v.RiskLevel.Valid() {
		return goerr.Wrap(ErrSchemaViolation, "invalid risk level", goerr.V("riskLevel", v.RiskLevel))
	}
	if v.Changes == nil {
		return goerr.Wrap(ErrSchemaViolation, "changes is null")
	}
	if v.Usage == nil {
		return goerr.Wrap(ErrSchemaViolation, "usage is null")
	}
	for i, u := range v.Usage {
		if strings.TrimSpace(u.Class) == "" || strings.TrimSpace(u.Path) == "" {
			return goerr.Wrap(ErrSchemaViolation, "usage entry requires class and path", goerr.V("index", i))
		}
	}
	return nil
}

// Clone returns a deep copy of the verdict
func (v *RiskVerdict) Clone() *RiskVerdict {
	cloned := *v
	if v.Changes != nil {
		changes := *v.Changes
		cloned.Changes = &changes
	}
	if v.Usage != nil {
		cloned.Usage = make([]UsageRecord, len(v.Usage))
		for i, u := range v.Usage {
			cloned.Usage[i] = u
			if u.LastCommitInfo != nil {
				info := *u.LastCommitInfo
				cloned.Usage[i].LastCommitInfo = &info
			}
		}
	}
	return &cloned
}

// SameAssessment reports whether two verdicts carry identical fields, ignoring lastCommitInfo
func (v *RiskVerdict) SameAssessment(other *RiskVerdict) bool {
	if v.RiskLevel != other.RiskLevel || v.Comments != other.Comments {
		return false
	}
	if (v.Changes == nil) != (other.Changes == nil) {
		return false
	}
	if v.Changes != nil && *v.Changes != *other.Changes {
		return false
	}
	if len(v.Usage) != len(other.Usage) {
		return false
	}
	for i := range v.Usage {
		if v.Usage[i].Class != other.Usage[i].Class || v.Usage[i].Path != other.Usage[i].Path {
			return false
		}
	}
	return true
}
