package lifecycle

type Option func(*Machine)

// WithSessionIDGenerator replaces the generator of session identifiers.
// The default generates random UUIDs.
func WithSessionIDGenerator(gen func() string) Option {
	return func(m *Machine) {
		m.newID = gen
	}
}
