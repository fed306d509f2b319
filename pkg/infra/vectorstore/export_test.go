package vectorstore

var ParseSearchResult = parseSearchResult
