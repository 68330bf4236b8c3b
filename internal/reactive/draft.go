package reactive

import "reflect"

type draftSession struct {
	active bool
}

type draftable interface {
	attachDraft(s *draftSession)
	detachDraft()
}

var draftableType = reflect.TypeFor[draftable]()

// Draft returns the middleware that turns recipes into mutators.
//
// A recipe edits a private copy of the snapshot in place. Map fields reached
// through exported struct fields (including embedded ones) are attached to a
// draft session, so their first write clones and later writes are in place.
// Everything the recipe did not touch is shared with the previous snapshot.
// If the recipe returns an error the copy is discarded.
func Draft[S any]() Middleware[S] {
	return MiddlewareFunc[S](func(next SetFunc[S], _ API[S]) SetFunc[S] {
		return func(m Mutation[S]) error {
			if m.Recipe != nil && m.Apply == nil {
				recipe := m.Recipe
				m.Apply = func(base S) (S, error) {
					return produce(base, recipe)
				}
				m.Recipe = nil
			}
			return next(m)
		}
	})
}

func produce[S any](base S, recipe func(*S) error) (S, error) {
	draft := base
	session := &draftSession{active: true}
	root := reflect.ValueOf(&draft).Elem()

	walkDraftables(root, func(d draftable) { d.attachDraft(session) })
	err := recipe(&draft)
	session.active = false
	walkDraftables(root, func(d draftable) { d.detachDraft() })

	if err != nil {
		return base, err
	}
	return draft, nil
}

// walkDraftables visits every addressable draftable value reachable from v
// through exported or embedded struct fields. Pointers are not followed.
func walkDraftables(v reflect.Value, fn func(draftable)) {
	if v.CanAddr() && v.CanInterface() && v.Addr().Type().Implements(draftableType) {
		if d, ok := v.Addr().Interface().(draftable); ok {
			fn(d)
		}
		return
	}
	if v.Kind() != reflect.Struct {
		return
	}
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if f := t.Field(i); !f.IsExported() && !f.Anonymous {
			continue
		}
		walkDraftables(v.Field(i), fn)
	}
}
