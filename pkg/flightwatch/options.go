package flightwatch

import "time"

type options struct {
	airports     []string
	endpoint     string
	snapshotFile string
	window       time.Duration
	fetchTimeout time.Duration
}

// Option configures a Monitor.
type Option func(*options)

// WithAirports sets the watch-list of ICAO codes.
// Default: OJAI, OJAM, OSDI, ORBI.
func WithAirports(codes ...string) Option {
	return func(o *options) {
		o.airports = codes
	}
}

// WithEndpoint overrides the IVAO API base URL.
func WithEndpoint(url string) Option {
	return func(o *options) {
		o.endpoint = url
	}
}

// WithSnapshotFile reads whazzup JSON from a file instead of the network.
func WithSnapshotFile(path string) Option {
	return func(o *options) {
		o.snapshotFile = path
	}
}

// WithWindow sets how long a returned event is suppressed. Default: 24h.
func WithWindow(d time.Duration) Option {
	return func(o *options) {
		o.window = d
	}
}

// WithFetchTimeout bounds each snapshot read. Default: 20s.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.fetchTimeout = d
	}
}

func defaultOptions() options {
	return options{
		airports:     []string{"OJAI", "OJAM", "OSDI", "ORBI"},
		window:       24 * time.Hour,
		fetchTimeout: 20 * time.Second,
	}
}
