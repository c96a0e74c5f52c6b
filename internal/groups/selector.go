package groups

// Selector addresses either one group by name or every group.
type Selector struct {
	name string
	all  bool
}

// ByName selects a single group.
func ByName(name string) Selector { return Selector{name: name} }

// AllGroups selects every configured group.
func AllGroups() Selector { return Selector{all: true} }

// ParseSelector maps the reserved name onto AllGroups.
func ParseSelector(s string) Selector {
	if s == ReservedName {
		return AllGroups()
	}
	return ByName(s)
}

func (s Selector) IsAll() bool  { return s.all }
func (s Selector) Name() string { return s.name }

func (s Selector) String() string {
	if s.all {
		return ReservedName
	}
	return s.name
}
