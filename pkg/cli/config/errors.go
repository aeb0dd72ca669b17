package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrInvalidConfig    = goerr.New("invalid configuration")
	ErrDuplicateGroup   = goerr.New("duplicate group name")
	ErrDuplicateMember  = goerr.New("duplicate member name")
	ErrMissingName      = goerr.New("name is required")
	ErrInvalidDuration  = goerr.New("invalid duration")
	ErrInvalidPublicKey = goerr.New("invalid discord public key")
)

// Context keys for error values
const (
	ConfigPathKey  = "config_path"
	GroupNameKey   = "group_name"
	MemberNameKey  = "member_name"
	GroupIndexKey  = "group_index"
	MemberIndexKey = "member_index"
)
