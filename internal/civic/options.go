package civic

// Option configures a Static resolver.
type Option func(*Static)

// WithMaxScope bounds how many sponsor ids one constituency may expand to.
func WithMaxScope(maxScope int) Option {
	return func(s *Static) {
		if maxScope > 0 {
			s.maxScope = maxScope
		}
	}
}
