package cli

var GetIndexConfig = getIndexConfig

var PrintTrace = printTrace
