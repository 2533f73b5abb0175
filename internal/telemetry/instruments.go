package telemetry

import (
	"go.opentelemetry.io/otel/metric"
)

// Instruments are the counters recorded by znptool.
type Instruments struct {
	// FlashBytes counts firmware bytes read out of flash
	FlashBytes metric.Int64Counter

	// FlashChunks counts successful bootloader reads
	FlashChunks metric.Int64Counter

	// NvramItems counts restored items, by namespace and outcome
	NvramItems metric.Int64Counter
}

// NewInstruments creates the counters on m.
func NewInstruments(m metric.Meter) (*Instruments, error) {
	flashBytes, err := m.Int64Counter("znp.flash.bytes",
		metric.WithDescription("Firmware bytes read out of flash"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	flashChunks, err := m.Int64Counter("znp.flash.chunks",
		metric.WithDescription("Successful bootloader flash reads"),
	)
	if err != nil {
		return nil, err
	}

	nvramItems, err := m.Int64Counter("znp.nvram.items",
		metric.WithDescription("NVRAM items processed during a restore"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{
		FlashBytes:  flashBytes,
		FlashChunks: flashChunks,
		NvramItems:  nvramItems,
	}, nil
}
