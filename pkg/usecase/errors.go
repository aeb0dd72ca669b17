package usecase

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/service/discord"
)

// Sentinel errors for use case layer
var (
	// ErrNotFound means a Discord object or stored record is missing. The
	// message is left alone and nothing is shown to the user.
	ErrNotFound = discord.ErrNotFound

	// ErrUnavailable means Discord timed out or failed
	ErrUnavailable = discord.ErrUnavailable

	// ErrPermissionDenied means the author or the bot lacks a permission it needs
	ErrPermissionDenied = goerr.New("permission denied")

	// ErrContentRejected means the message failed a size or shape guard. A
	// self-deleting notice has been sent.
	ErrContentRejected = goerr.New("content rejected")
)
