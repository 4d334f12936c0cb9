package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestybox/guestsup/internal/domain"
	"github.com/nestybox/guestsup/internal/errno"
)

func Test_Getpid_UnknownCallerIsSrch(t *testing.T) {
	sv := newFakeSupervisor()
	n := domain.Notification{Pid: 999}

	v := Getpid{}.Handle(n, sv)
	assert.Equal(t, errno.SRCH.Errno(), v.Err)
}

func Test_Getpid_LeaderSeesNsTidOne(t *testing.T) {
	sv := newFakeSupervisor()
	leader := sv.reg.Init(5000)

	n := domain.Notification{Pid: leader.Tid}
	v := Getpid{}.Handle(n, sv)

	require.Equal(t, domain.Success, v.Kind)
	assert.Equal(t, int64(1), v.Value)
}

// S5: a thread that is the init thread of a nested namespace (created via
// CLONE_NEWPID) sees itself as NsTid 1 there, regardless of its AbsTid.
func Test_Getpid_S5_NestedNamespaceLeaderSeesNsTidOne(t *testing.T) {
	sv := newFakeSupervisor()
	parent := sv.reg.Init(5000)

	nsInit, err := sv.reg.RegisterChild(parent, 5001, domain.CLONE_NEWPID)
	require.NoError(t, err)

	n := domain.Notification{Pid: nsInit.Tid}
	v := Getpid{}.Handle(n, sv)

	require.Equal(t, domain.Success, v.Kind)
	assert.Equal(t, int64(1), v.Value)
}

func Test_Getpid_ThreadGroupMemberSeesLeadersNsTid(t *testing.T) {
	sv := newFakeSupervisor()
	leader := sv.reg.Init(5000)
	member, err := sv.reg.RegisterChild(leader, 5002, domain.CLONE_THREAD)
	require.NoError(t, err)

	n := domain.Notification{Pid: member.Tid}
	v := Getpid{}.Handle(n, sv)

	require.Equal(t, domain.Success, v.Kind)
	assert.Equal(t, int64(1), v.Value, "a thread-group member reports its leader's namespaced id")
}
