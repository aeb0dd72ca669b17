package discord

var (
	Classify = classify
	FileName = fileName
)
