package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	binary string
	args   []string
}

// fakeRunner records invocations and replies from a table keyed by the
// controller command.
type fakeRunner struct {
	calls   []call
	replies map[string]string
	err     error
}

func (f *fakeRunner) run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{binary: binary, args: args})
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.replies[args[0]]), nil
}

func newTestController(f *fakeRunner) *Controller {
	log, _ := test.NewNullLogger()
	c := NewController("ctl.exe", log)
	c.run = f.run
	return c
}

func TestController_ListChildFolders(t *testing.T) {
	f := &fakeRunner{replies: map[string]string{"/getallfolders": folderTreeXML}}
	c := newTestController(f)

	names, err := c.ListChildFolders(context.Background(), "/Sales")
	require.NoError(t, err)
	assert.Equal(t, []string{"EU", "US"}, names)

	require.Len(t, f.calls, 1)
	assert.Equal(t, "ctl.exe", f.calls[0].binary)
	assert.Equal(t, []string{"/getallfolders", "console"}, f.calls[0].args)
}

func TestController_QueriesEveryTime(t *testing.T) {
	f := &fakeRunner{replies: map[string]string{"/getallfolders": folderTreeXML}}
	c := newTestController(f)

	for i := 0; i < 3; i++ {
		_, err := c.ListChildFolders(context.Background(), "/")
		require.NoError(t, err)
	}
	assert.Len(t, f.calls, 3)
}

func TestController_ListLeaves(t *testing.T) {
	f := &fakeRunner{replies: map[string]string{
		"/getprocessesoffolder": `<Processes><Process><Name>Invoice</Name></Process></Processes>`,
	}}
	c := newTestController(f)

	leaves, err := c.ListLeaves(context.Background(), "/Sales")
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.Equal(t, "/Sales/Invoice", leaves[0].Path)
	assert.Equal(t, []string{"/getprocessesoffolder", "/Sales", "console"}, f.calls[0].args)
}

func TestController_Transfers(t *testing.T) {
	f := &fakeRunner{}
	c := newTestController(f)
	ctx := context.Background()

	require.NoError(t, c.TransferLeafOut(ctx, "/Sales/Invoice", `C:\mirror\Sales\Invoice.waj`))
	require.NoError(t, c.TransferLeafIn(ctx, `C:\mirror\Sales\Invoice.waj`, "/Sales/Invoice"))

	require.Len(t, f.calls, 2)
	assert.Equal(t, []string{"/export", "/Sales/Invoice", `C:\mirror\Sales\Invoice.waj`}, f.calls[0].args)
	assert.Equal(t, []string{"/import", `C:\mirror\Sales\Invoice.waj`, "/Sales/Invoice"}, f.calls[1].args)
}

func TestController_ErrorWrapsCommand(t *testing.T) {
	boom := errors.New("exit status 2")
	c := newTestController(&fakeRunner{err: boom})

	err := c.TransferLeafOut(context.Background(), "/A", "a.waj")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "controller /export")
}

func TestController_LogsCallsAtDebug(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	c := NewController("ctl.exe", log)
	c.run = (&fakeRunner{}).run

	require.NoError(t, c.TransferLeafIn(context.Background(), "a.waj", "/A"))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "/import a.waj /A", entry.Data["args"])
}
