package memory

import (
	"github.com/secmon-lab/proxima/pkg/domain/interfaces"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = interfaces.ErrNotFound

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	group          *groupRepository
	member         *memberRepository
	latch          *latchRepository
	endpoint       *endpointRepository
	proxiedMessage *proxiedMessageRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		group:          newGroupRepository(),
		member:         newMemberRepository(),
		latch:          newLatchRepository(),
		endpoint:       newEndpointRepository(),
		proxiedMessage: newProxiedMessageRepository(),
	}
}

func (m *Memory) Group() interfaces.GroupRepository {
	return m.group
}

func (m *Memory) Member() interfaces.MemberRepository {
	return m.member
}

func (m *Memory) Latch() interfaces.LatchRepository {
	return m.latch
}

func (m *Memory) Endpoint() interfaces.EndpointRepository {
	return m.endpoint
}

func (m *Memory) ProxiedMessage() interfaces.ProxiedMessageRepository {
	return m.proxiedMessage
}

// Close stops the expiry timers of the proxied message store
func (m *Memory) Close() error {
	m.proxiedMessage.cache.Close()
	return nil
}
