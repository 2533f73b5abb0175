package nvram

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/moffa90/go-znp/backup"
	"github.com/moffa90/go-znp/nvids"
	"github.com/moffa90/go-znp/protocol"
)

// Link is the request/response transport the restorer drives.
// *link.Link satisfies it.
type Link interface {
	Request(ctx context.Context, req *protocol.Frame, expected protocol.Status) (*protocol.Frame, error)
	RequestCallback(ctx context.Context, req *protocol.Frame, callback protocol.Matcher) (*protocol.Frame, error)
	WriteNvramItem(ctx context.Context, id uint16, value []byte) error
}

// Namespace is a section of an NVRAM backup.
type Namespace string

const (
	Network Namespace = backup.KeyNetwork
	Osal    Namespace = backup.KeyOsal
)

// Outcome is the result of restoring one item.
type Outcome struct {
	Namespace Namespace
	Name      string
	ID        uint16
	Value     []byte

	// Err is nil if the item was applied, otherwise an *ItemWriteError
	Err error
}

// Applied reports whether the item was written.
func (o Outcome) Applied() bool {
	return o.Err == nil
}

// Report collects the outcomes of a restore in the order items were written.
type Report struct {
	Outcomes []Outcome

	// Reset is the radio's reset indication, nil if the reset failed
	Reset *protocol.ResetInfo
}

// Applied returns the number of items written.
func (r *Report) Applied() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Applied() {
			n++
		}
	}
	return n
}

// Failed returns the outcomes of items that could not be written.
func (r *Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if !o.Applied() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Restorer writes an NVRAM backup into a running radio.
//
// The link must be connected to the radio application, not the bootloader.
type Restorer struct {
	link   Link
	config Config
	state  State
}

// New creates a new Restorer on the given link.
//
// Example:
//
//	l, _ := link.Open(ctx, "/dev/ttyUSB0", link.WithSkipBootloader(time.Second), link.WithTestPort())
//	r := nvram.New(l, nvram.WithLogger(slog.Default()))
func New(link Link, opts ...Option) *Restorer {
	if link == nil {
		panic("link cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Restorer{
		link:   link,
		config: cfg,
	}
}

// State returns the current state of the restorer.
func (r *Restorer) State() State {
	return r.state
}

// Restore writes every item of nv, network items first, then soft resets
// the radio so the values take effect.
//
// A failing item is logged, recorded in the report and skipped. The reset
// is always attempted once both namespaces have been processed; if it fails
// the report is returned together with a *ResetError. Only cancellation of
// ctx stops the restore early, in which case no reset is sent.
//
// Example:
//
//	nv, _ := backup.LoadNVRAM("nvram.json")
//	report, err := r.Restore(ctx, nv)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, o := range report.Failed() {
//	    log.Println(o.Err)
//	}
func (r *Restorer) Restore(ctx context.Context, nv *backup.NVRAM) (*Report, error) {
	if nv == nil {
		return nil, fmt.Errorf("NVRAM backup cannot be nil")
	}

	r.setState(StateConnected)
	report := &Report{Outcomes: make([]Outcome, 0, nv.Len())}

	r.setState(StateRestoringNetworkItems)
	for _, e := range nv.Network {
		o := r.restoreItem(ctx, Network, r.config.NetworkCatalog, e, r.writeNetworkItem)
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("cancelled: %w", err)
		}
		report.Outcomes = append(report.Outcomes, o)
	}

	r.setState(StateRestoringOsalItems)
	for _, e := range nv.Osal {
		o := r.restoreItem(ctx, Osal, r.config.OsalCatalog, e, r.writeOsalItem)
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("cancelled: %w", err)
		}
		report.Outcomes = append(report.Outcomes, o)
	}

	r.setState(StateResettingForApply)
	info, err := r.reset(ctx)
	if err != nil {
		r.logError("radio did not confirm reset", "error", err)
		return report, &ResetError{Err: err}
	}
	report.Reset = info

	r.setState(StateDone)

	r.logInfo("NVRAM restore complete",
		"applied", report.Applied(),
		"failed", len(report.Outcomes)-report.Applied(),
	)

	return report, nil
}

type writeFunc func(ctx context.Context, id uint16, value []byte) error

// restoreItem resolves and writes one entry, converting any failure into
// an outcome.
func (r *Restorer) restoreItem(ctx context.Context, ns Namespace, catalog *nvids.Catalog, e backup.Entry, write writeFunc) Outcome {
	o := Outcome{Namespace: ns, Name: e.Name}

	fail := func(err error) Outcome {
		o.Err = &ItemWriteError{Namespace: ns, Name: e.Name, ID: o.ID, Value: e.Value, Err: err}
		r.logWarn("write failed",
			"namespace", string(ns),
			"name", e.Name,
			"id", fmt.Sprintf("0x%04X", o.ID),
			"value", e.Value,
			"error", err,
		)
		return o
	}

	id, ok := catalog.Lookup(e.Name)
	if !ok {
		return fail(fmt.Errorf("%w %q in %s catalog", ErrUnknownItem, e.Name, catalog.Namespace()))
	}
	o.ID = id

	value, err := e.Bytes()
	if err != nil {
		return fail(err)
	}
	o.Value = value

	if r.config.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.WriteTimeout)
		defer cancel()
	}

	if err := write(ctx, id, value); err != nil {
		return fail(err)
	}

	r.logDebug("wrote item",
		"namespace", string(ns),
		"name", e.Name,
		"id", fmt.Sprintf("0x%04X", id),
		"value", hex.EncodeToString(value),
	)
	return o
}

// writeNetworkItem creates the item if needed, then writes its value.
func (r *Restorer) writeNetworkItem(ctx context.Context, id uint16, value []byte) error {
	if len(value) > 0xFFFF {
		return fmt.Errorf("value length %d exceeds maximum 65535 bytes", len(value))
	}

	// Large items are created empty; the write below fills them.
	initial := value
	if len(initial) > protocol.MaxOSALNVItemInitValue {
		initial = nil
	}

	req, err := protocol.BuildOSALNVItemInitReq(id, uint16(len(value)), initial)
	if err != nil {
		return err
	}
	if _, err := r.link.Request(ctx, req, protocol.StatusSuccess); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	return r.link.WriteNvramItem(ctx, id, value)
}

// writeOsalItem writes an extended item of the Z-Stack system.
func (r *Restorer) writeOsalItem(ctx context.Context, id uint16, value []byte) error {
	req, err := protocol.BuildNVWriteReq(protocol.SysIDZStack, id, 0, 0, value)
	if err != nil {
		return err
	}
	_, err = r.link.Request(ctx, req, protocol.StatusSuccess)
	return err
}

func (r *Restorer) reset(ctx context.Context) (*protocol.ResetInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.ResetTimeout)
	defer cancel()

	rsp, err := r.link.RequestCallback(ctx, protocol.BuildResetReq(protocol.ResetSoft), protocol.ResetIndCallback)
	if err != nil {
		return nil, err
	}

	info, err := protocol.ParseResetInd(rsp.Data)
	if err != nil {
		return nil, err
	}

	r.logDebug("radio reset",
		"reason", info.Reason,
		"version", fmt.Sprintf("%d.%d.%d", info.MajorRel, info.MinorRel, info.MaintRel),
	)
	return info, nil
}

func (r *Restorer) setState(s State) {
	r.state = s
	if r.config.StateCallback != nil {
		r.config.StateCallback(s)
	}
}

func (r *Restorer) logDebug(msg string, keysAndValues ...interface{}) {
	if r.config.Logger != nil {
		r.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (r *Restorer) logInfo(msg string, keysAndValues ...interface{}) {
	if r.config.Logger != nil {
		r.config.Logger.Info(msg, keysAndValues...)
	}
}

func (r *Restorer) logWarn(msg string, keysAndValues ...interface{}) {
	if r.config.Logger != nil {
		r.config.Logger.Warn(msg, keysAndValues...)
	}
}

func (r *Restorer) logError(msg string, keysAndValues ...interface{}) {
	if r.config.Logger != nil {
		r.config.Logger.Error(msg, keysAndValues...)
	}
}
