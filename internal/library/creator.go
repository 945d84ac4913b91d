package library

// Creator is a person in a specific authorship role on an item.
type Creator struct {
	Person Person
	Role   string
}

// NewCreator builds a creator from separate name fields.
func NewCreator(first, last, role string) Creator {
	return Creator{Person: Person{Last: last, First: first}, Role: role}
}

// Same reports whether both creators name the same person in the same role.
func (c Creator) Same(o Creator) bool {
	return c.Role == o.Role && c.Person.Same(o.Person)
}

func creatorFromPayload(v map[string]any) Creator {
	str := func(key string) string {
		s, _ := v[key].(string)
		return s
	}
	c := NewCreator(str("firstName"), str("lastName"), str("creatorType"))
	// Single-field creators arrive with "name" instead of the split pair.
	if c.Person.Last == "" && c.Person.First == "" {
		c.Person.Last = str("name")
	}
	return c
}

func (c Creator) toPayload() map[string]any {
	return map[string]any{
		"creatorType": c.Role,
		"firstName":   c.Person.First,
		"lastName":    c.Person.Last,
	}
}

func decodeCreators(v any) []Creator {
	list, ok := v.([]any)
	if !ok {
		if cs, ok := v.([]Creator); ok {
			out := make([]Creator, len(cs))
			copy(out, cs)
			return out
		}
		return nil
	}
	creators := make([]Creator, 0, len(list))
	for _, e := range list {
		if m, ok := e.(map[string]any); ok {
			creators = append(creators, creatorFromPayload(m))
		}
	}
	return creators
}
