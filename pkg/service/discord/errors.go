package discord

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/interfaces"
)

var (
	// ErrNotFound is returned when Discord reports the object as missing
	ErrNotFound = interfaces.ErrNotFound

	// ErrUnknownWebhook is returned when the webhook was deleted. It also
	// matches ErrNotFound.
	ErrUnknownWebhook = goerr.Wrap(ErrNotFound, "unknown webhook")

	// ErrUnavailable is returned for timeouts, server errors and exhausted
	// rate limits
	ErrUnavailable = goerr.New("discord unavailable")
)

// unknownObjectCodes are JSON error codes meaning the referenced object does
// not exist
var unknownObjectCodes = map[int]struct{}{
	discordgo.ErrCodeUnknownChannel: {},
	discordgo.ErrCodeUnknownGuild:   {},
	discordgo.ErrCodeUnknownMember:  {},
	discordgo.ErrCodeUnknownMessage: {},
	discordgo.ErrCodeUnknownRole:    {},
	discordgo.ErrCodeUnknownUser:    {},
	discordgo.ErrCodeUnknownEmoji:   {},
}

// classify maps a discordgo error onto the package sentinels, keeping the
// original error as a value
func classify(err error, msg string, vals ...goerr.Option) error {
	if err == nil {
		return nil
	}

	opts := append([]goerr.Option{goerr.V("cause", err.Error())}, vals...)

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return goerr.Wrap(ErrUnavailable, msg, opts...)
	}

	var rateErr *discordgo.RateLimitError
	if errors.As(err, &rateErr) {
		return goerr.Wrap(ErrUnavailable, msg, opts...)
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		code := 0
		if restErr.Message != nil {
			code = restErr.Message.Code
			opts = append(opts, goerr.V("code", code))
		}
		if restErr.Response != nil {
			opts = append(opts, goerr.V("status", restErr.Response.StatusCode))
		}

		if code == discordgo.ErrCodeUnknownWebhook {
			return goerr.Wrap(ErrUnknownWebhook, msg, opts...)
		}
		if _, ok := unknownObjectCodes[code]; ok {
			return goerr.Wrap(ErrNotFound, msg, opts...)
		}
		if restErr.Response != nil {
			switch status := restErr.Response.StatusCode; {
			case status == http.StatusNotFound:
				return goerr.Wrap(ErrNotFound, msg, opts...)
			case status == http.StatusTooManyRequests, status >= http.StatusInternalServerError:
				return goerr.Wrap(ErrUnavailable, msg, opts...)
			}
		}
	}

	return goerr.Wrap(err, msg, vals...)
}
