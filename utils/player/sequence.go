package player

// Then returns a callback running steps in order. Nil steps are skipped.
func Then(steps ...func()) func() {
	return func() {
		for _, step := range steps {
			if step != nil {
				step()
			}
		}
	}
}
