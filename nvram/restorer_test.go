package nvram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/moffa90/go-znp/backup"
	"github.com/moffa90/go-znp/internal/znptest"
	"github.com/moffa90/go-znp/link"
	"github.com/moffa90/go-znp/protocol"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingLogger keeps warn messages for inspection.
type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(msg string, kv ...interface{}) {}
func (l *recordingLogger) Info(msg string, kv ...interface{})  {}
func (l *recordingLogger) Error(msg string, kv ...interface{}) {}

func (l *recordingLogger) Warn(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, fmt.Sprint(append([]interface{}{msg}, kv...)...))
}

func (l *recordingLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func connect(t *testing.T, radio *znptest.Radio) *link.Link {
	t.Helper()

	l, err := link.Connect(context.Background(), radio.Pipe())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func parse(t *testing.T, doc string) *backup.NVRAM {
	t.Helper()
	nv, err := backup.ParseNVRAM([]byte(doc))
	require.NoError(t, err)
	return nv
}

func withTimeout(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNew_NilLink(t *testing.T) {
	assert.Panics(t, func() { New(nil) })
}

func TestRestore_UnknownItem(t *testing.T) {
	radio := znptest.NewRadio()
	logger := &recordingLogger{}

	report, err := New(connect(t, radio), WithLogger(logger)).
		Restore(withTimeout(t), parse(t, `{"nwk": {"foo": "0a0b"}, "osal": {}}`))
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 1)
	o := report.Outcomes[0]
	assert.False(t, o.Applied())
	assert.Equal(t, Network, o.Namespace)
	assert.Equal(t, "foo", o.Name)

	var we *ItemWriteError
	require.True(t, errors.As(o.Err, &we))
	assert.Equal(t, "0a0b", we.Value)
	assert.True(t, errors.Is(o.Err, ErrUnknownItem))

	assert.Equal(t, 1, logger.count())
	assert.Equal(t, 1, radio.Resets())
	require.NotNil(t, report.Reset)
	assert.Equal(t, radio.Reset, *report.Reset)
}

func TestRestore_PartialFailure(t *testing.T) {
	radio := znptest.NewRadio()
	radio.Reject[0x0083] = protocol.StatusNVOperFailed // PANID
	radio.RejectEx[0x0004] = protocol.StatusFailure    // TCLK_TABLE
	logger := &recordingLogger{}

	nv := parse(t, `{
		"nwk": {
			"EXTADDR": "0123456789abcdef",
			"PANID": "3412",
			"NIB": "zz",
			"CHANLIST": "00080000"
		},
		"osal": {
			"TCLK_TABLE": "00112233",
			"ADDRMGR": "ffee"
		}
	}`)

	report, err := New(connect(t, radio), WithLogger(logger)).Restore(withTimeout(t), nv)
	require.NoError(t, err)

	want := []struct {
		name    string
		applied bool
	}{
		{"EXTADDR", true},
		{"PANID", false},
		{"NIB", false},
		{"CHANLIST", true},
		{"TCLK_TABLE", false},
		{"ADDRMGR", true},
	}
	require.Len(t, report.Outcomes, len(want))
	for i, w := range want {
		assert.Equal(t, w.name, report.Outcomes[i].Name)
		assert.Equal(t, w.applied, report.Outcomes[i].Applied(), w.name)
	}
	assert.Equal(t, 3, report.Applied())
	assert.Len(t, report.Failed(), 3)
	assert.Equal(t, 3, logger.count())

	var ie *link.InvalidCommandResponseError
	require.True(t, errors.As(report.Outcomes[1].Err, &ie))
	assert.Equal(t, protocol.StatusNVOperFailed, ie.Actual)

	extAddr, ok := radio.Item(0x0001)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef}, extAddr)

	addrMgr, ok := radio.ExItem(0x0001)
	require.True(t, ok)
	assert.Equal(t, []byte{0xff, 0xee}, addrMgr)

	_, ok = radio.ExItem(0x0004)
	assert.False(t, ok)

	assert.Equal(t, 1, radio.Resets())
}

func TestRestore_Idempotent(t *testing.T) {
	radio := znptest.NewRadio()
	radio.Reject[0x0083] = protocol.StatusNVOperFailed
	r := New(connect(t, radio))

	nv := parse(t, `{"nwk": {"EXTADDR": "0102030405060708", "PANID": "3412"}, "osal": {"ADDRMGR": "00"}}`)

	first, err := r.Restore(withTimeout(t), nv)
	require.NoError(t, err)
	second, err := r.Restore(withTimeout(t), nv)
	require.NoError(t, err)

	require.Len(t, second.Outcomes, len(first.Outcomes))
	for i := range first.Outcomes {
		assert.Equal(t, first.Outcomes[i].Name, second.Outcomes[i].Name)
		assert.Equal(t, first.Outcomes[i].Applied(), second.Outcomes[i].Applied())
	}
	assert.Equal(t, 2, radio.Resets(), "one reset per restore")
}

func TestRestore_States(t *testing.T) {
	var states []State
	r := New(connect(t, znptest.NewRadio()), WithStateCallback(func(s State) {
		states = append(states, s)
	}))

	_, err := r.Restore(withTimeout(t), parse(t, `{"nwk": {}, "osal": {}}`))
	require.NoError(t, err)

	assert.Equal(t, []State{
		StateConnected,
		StateRestoringNetworkItems,
		StateRestoringOsalItems,
		StateResettingForApply,
		StateDone,
	}, states)
	assert.Equal(t, StateDone, r.State())
}

func TestRestore_LargeNetworkItem(t *testing.T) {
	radio := znptest.NewRadio()

	value := make([]byte, 300)
	for i := range value {
		value[i] = byte(i)
	}

	report, err := New(connect(t, radio)).
		Restore(withTimeout(t), parse(t, fmt.Sprintf(`{"nwk": {"NIB": "%x"}, "osal": {}}`, value)))
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	require.NoError(t, report.Outcomes[0].Err)

	stored, ok := radio.Item(0x0021)
	require.True(t, ok)
	assert.Equal(t, value, stored)

	writeExt := protocol.NewHeader(protocol.TypeSREQ, protocol.SubsystemSYS, protocol.CmdSysOSALNVWriteExt)
	assert.Equal(t, 2, radio.Count(writeExt))
}

func TestRestore_OversizedOsalItem(t *testing.T) {
	radio := znptest.NewRadio()

	value := make([]byte, protocol.MaxNVWriteValue+1)
	report, err := New(connect(t, radio)).
		Restore(withTimeout(t), parse(t, fmt.Sprintf(`{"nwk": {}, "osal": {"TCLK_TABLE": "%x"}}`, value)))
	require.NoError(t, err)

	require.Len(t, report.Failed(), 1)
	assert.Equal(t, 1, radio.Resets())
}

func TestRestore_ResetFailure(t *testing.T) {
	radio := znptest.NewRadio()
	radio.IgnoreReset = true

	var last State
	r := New(connect(t, radio),
		WithResetTimeout(50*time.Millisecond),
		WithStateCallback(func(s State) { last = s }),
	)

	report, err := r.Restore(withTimeout(t), parse(t, `{"nwk": {"PANID": "3412"}, "osal": {}}`))
	require.Error(t, err)

	var re *ResetError
	require.True(t, errors.As(err, &re))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	require.NotNil(t, report)
	assert.Equal(t, 1, report.Applied())
	assert.Nil(t, report.Reset)
	assert.Equal(t, StateResettingForApply, last)
}

func TestRestore_Cancelled(t *testing.T) {
	radio := znptest.NewRadio()
	l := connect(t, radio)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(l).Restore(ctx, parse(t, `{"nwk": {"PANID": "3412", "NIB": "00"}, "osal": {}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, report.Outcomes)
	assert.Equal(t, 0, radio.Resets())
}

func TestRestore_NilBackup(t *testing.T) {
	_, err := New(connect(t, znptest.NewRadio())).Restore(context.Background(), nil)
	assert.Error(t, err)
}

// stallingLink never answers NVWrite requests.
type stallingLink struct {
	*link.Link
}

func (s stallingLink) Request(ctx context.Context, req *protocol.Frame, expected protocol.Status) (*protocol.Frame, error) {
	if req.Header.ID == protocol.CmdSysNVWrite {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.Link.Request(ctx, req, expected)
}

func TestRestore_WriteTimeout(t *testing.T) {
	radio := znptest.NewRadio()

	report, err := New(stallingLink{connect(t, radio)}, WithWriteTimeout(20*time.Millisecond)).
		Restore(withTimeout(t), parse(t, `{"nwk": {"PANID": "3412"}, "osal": {"ADDRMGR": "00", "DEVICE_LIST": "00"}}`))
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 3)
	assert.True(t, report.Outcomes[0].Applied())
	for _, o := range report.Outcomes[1:] {
		assert.True(t, errors.Is(o.Err, context.DeadlineExceeded), o.Name)
	}
	assert.Equal(t, 1, radio.Resets())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "restoring network items", StateRestoringNetworkItems.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "unknown", State(42).String())
}
