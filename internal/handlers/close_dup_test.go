package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestybox/guestsup/internal/domain"
	"github.com/nestybox/guestsup/internal/errno"
)

func Test_Close_UnknownCallerIsSrch(t *testing.T) {
	sv := newFakeSupervisor()
	n := domain.Notification{Pid: 999}
	v := Close{}.Handle(n, sv)
	assert.Equal(t, errno.SRCH.Errno(), v.Err)
}

func Test_Close_UnopenedVfdIsBadf(t *testing.T) {
	sv := newFakeSupervisor()
	sv.reg.Init(100)

	n := domain.Notification{Pid: 100}
	n.Args[0] = 50

	v := Close{}.Handle(n, sv)
	assert.Equal(t, errno.BADF.Errno(), v.Err)
}

func Test_Close_DropsReferenceAndFrees(t *testing.T) {
	sv := newFakeSupervisor()
	caller := sv.reg.Init(100)
	be := &fakeEventBackend{}
	f := domain.NewFile(be)
	vfd := caller.FdTable.Insert(f, domain.InsertOpts{})

	n := domain.Notification{Pid: 100}
	n.Args[0] = uint64(vfd)

	v := Close{}.Handle(n, sv)

	require.Equal(t, domain.Success, v.Kind)
	assert.True(t, be.closed)
	assert.Nil(t, caller.FdTable.GetRef(vfd))
}

func Test_Dup_UnknownCallerIsSrch(t *testing.T) {
	sv := newFakeSupervisor()
	n := domain.Notification{Pid: 999}
	v := Dup{}.Handle(n, sv)
	assert.Equal(t, errno.SRCH.Errno(), v.Err)
}

func Test_Dup_UnopenedVfdIsBadf(t *testing.T) {
	sv := newFakeSupervisor()
	sv.reg.Init(100)

	n := domain.Notification{Pid: 100}
	n.Args[0] = 50

	v := Dup{}.Handle(n, sv)
	assert.Equal(t, errno.BADF.Errno(), v.Err)
}

func Test_Dup_SharesUnderlyingFileAtNewVfd(t *testing.T) {
	sv := newFakeSupervisor()
	caller := sv.reg.Init(100)
	be := &fakeEventBackend{}
	f := domain.NewFile(be)
	oldfd := caller.FdTable.Insert(f, domain.InsertOpts{Cloexec: true})

	n := domain.Notification{Pid: 100}
	n.Args[0] = uint64(oldfd)

	v := Dup{}.Handle(n, sv)
	require.Equal(t, domain.Success, v.Kind)
	newfd := int32(v.Value)
	assert.NotEqual(t, oldfd, newfd)

	cloexec, ok := caller.FdTable.GetCloexec(newfd)
	require.True(t, ok)
	assert.False(t, cloexec, "dup never carries over the cloexec bit")

	ref := caller.FdTable.GetRef(newfd)
	require.NotNil(t, ref)
	defer ref.Unref()
	assert.Equal(t, f.Refcount(), ref.Refcount())
}
