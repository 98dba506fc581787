package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*matchupDeduper)

// WithMaxSize sets how many matchup IDs are remembered. Values <= 0 keep
// every ID.
func WithMaxSize(maxSize int) Option {
	return func(d *matchupDeduper) {
		d.maxSize = maxSize
	}
}
