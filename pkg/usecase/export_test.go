package usecase

// NextEmojiSuffix is exported for testing
var NextEmojiSuffix = (*ContentPipeline).nextEmojiSuffix

// APNGToGIF is exported for testing
var APNGToGIF = apngToGIF

// IsAbort is exported for testing
var IsAbort = isAbort
