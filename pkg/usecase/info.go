package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/proxima/pkg/domain/interfaces"
	"github.com/secmon-lab/proxima/pkg/domain/model"
)

// ProxyInfo describes who sent a proxied message
type ProxyInfo struct {
	Message *model.ProxiedMessage
	Member  *model.Member // nil when the member was deleted since
	Group   *model.Group
}

// InfoUseCase answers lookups about proxied messages
type InfoUseCase struct {
	repo interfaces.Repository
}

// NewInfoUseCase creates an InfoUseCase
func NewInfoUseCase(repo interfaces.Repository) *InfoUseCase {
	return &InfoUseCase{repo: repo}
}

// Lookup returns the record of the proxied message proxyID
func (uc *InfoUseCase) Lookup(ctx context.Context, proxyID string) (*ProxyInfo, error) {
	record, err := uc.repo.ProxiedMessage().Get(ctx, proxyID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get proxied message", goerr.V("proxy_id", proxyID))
	}

	info := &ProxyInfo{Message: record}

	member, err := uc.repo.Member().Get(ctx, record.MemberID)
	if errors.Is(err, interfaces.ErrNotFound) {
		return info, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get member", goerr.V("member_id", record.MemberID))
	}
	info.Member = member

	group, err := uc.repo.Group().Get(ctx, member.GroupID)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return nil, goerr.Wrap(err, "failed to get group", goerr.V("group_id", member.GroupID))
	}
	info.Group = group
	return info, nil
}
