package sources

// Option configures a Source.
type Option func(*Source)

// WithPriority sets the source's position in the declared merge order.
// Lower values win duplicates.
func WithPriority(priority int) Option {
	return func(s *Source) {
		s.priority = priority
	}
}

// WithRoles restricts the sponsor associations this source can filter by.
func WithRoles(roles ...Role) Option {
	return func(s *Source) {
		if len(roles) > 0 {
			s.roles = roles
		}
	}
}
