package reactive

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	Count int
	Name  string
}

type board struct {
	Selected string
	Items    Map[string, int]
}

func TestStore_New(t *testing.T) {
	s := New(counter{Count: 1, Name: "a"}, WithName[counter]("counter"))

	assert.Equal(t, "counter", s.Name())
	assert.Equal(t, counter{Count: 1, Name: "a"}, s.GetState())
	assert.Equal(t, int64(0), s.Version())
}

func TestStore_SetStateMergesUnassignedFields(t *testing.T) {
	s := New(counter{Count: 1, Name: "a"})

	err := s.SetState(func(c counter) (counter, error) {
		c.Count++
		return c, nil
	})
	require.NoError(t, err)

	assert.Equal(t, counter{Count: 2, Name: "a"}, s.GetState())
	assert.Equal(t, int64(1), s.Version())
}

func TestStore_ReplaceStateStartsFromZero(t *testing.T) {
	s := New(counter{Count: 1, Name: "a"})

	var seen counter
	err := s.SetState(func(c counter) (counter, error) {
		seen = c
		c.Count = 7
		return c, nil
	}, ReplaceState())
	require.NoError(t, err)

	assert.Equal(t, counter{}, seen)
	assert.Equal(t, counter{Count: 7}, s.GetState())
}

func TestStore_Replace(t *testing.T) {
	s := New(counter{Count: 1, Name: "a"})

	require.NoError(t, s.Replace(counter{Name: "b"}))
	assert.Equal(t, counter{Name: "b"}, s.GetState())
}

func TestStore_NotifiesInRegistrationOrder(t *testing.T) {
	s := New(counter{})

	var calls []string
	s.Subscribe(func(next, prev counter) {
		calls = append(calls, "first")
		assert.Equal(t, 1, next.Count)
		assert.Equal(t, 0, prev.Count)
	})
	s.Subscribe(func(next, prev counter) {
		calls = append(calls, "second")
	})

	require.NoError(t, s.SetState(func(c counter) (counter, error) {
		c.Count = 1
		return c, nil
	}))

	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestStore_ListenerSeesCommittedSnapshot(t *testing.T) {
	s := New(counter{})

	var observed counter
	s.Subscribe(func(next, prev counter) {
		observed = s.GetState()
	})

	require.NoError(t, s.SetState(func(c counter) (counter, error) {
		c.Count = 3
		return c, nil
	}))
	assert.Equal(t, 3, observed.Count)
}

func TestStore_NoChangeSkipsNotification(t *testing.T) {
	s := New(counter{Count: 1})

	notified := 0
	s.Subscribe(func(next, prev counter) { notified++ })

	require.NoError(t, s.SetState(func(c counter) (counter, error) { return c, nil }))
	require.NoError(t, s.SetState(func(c counter) (counter, error) {
		c.Count = 1
		return c, nil
	}))

	assert.Equal(t, 0, notified)
	assert.Equal(t, int64(0), s.Version())
}

func TestStore_Unsubscribe(t *testing.T) {
	s := New(counter{})

	notified := 0
	unsubscribe := s.Subscribe(func(next, prev counter) { notified++ })

	inc := func(c counter) (counter, error) {
		c.Count++
		return c, nil
	}

	require.NoError(t, s.SetState(inc))
	unsubscribe()
	unsubscribe()
	require.NoError(t, s.SetState(inc))

	assert.Equal(t, 1, notified)
	assert.Equal(t, 2, s.GetState().Count)
}

func TestStore_MutatorErrorLeavesSnapshot(t *testing.T) {
	s := New(counter{Count: 1})

	notified := 0
	s.Subscribe(func(next, prev counter) { notified++ })

	boom := errors.New("boom")
	err := s.SetState(func(c counter) (counter, error) {
		c.Count = 99
		return c, boom
	}, Label("explode"))

	require.Error(t, err)
	assert.True(t, IsMutatorError(err))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "action=explode")
	assert.Equal(t, 1, s.GetState().Count)
	assert.Equal(t, 0, notified)
}

func TestStore_MutatorPanicPropagates(t *testing.T) {
	s := New(counter{Count: 1})

	assert.Panics(t, func() {
		_ = s.SetState(func(c counter) (counter, error) {
			panic("mutator bug")
		})
	})

	assert.Equal(t, 1, s.GetState().Count)

	// The store is usable after the panic.
	require.NoError(t, s.SetState(func(c counter) (counter, error) {
		c.Count = 2
		return c, nil
	}))
	assert.Equal(t, 2, s.GetState().Count)
}

func TestStore_SubscriberPanicIsolated(t *testing.T) {
	var reported []error
	s := New(counter{}, WithErrorHandler[counter](func(err error) {
		reported = append(reported, err)
	}))

	second := 0
	s.Subscribe(func(next, prev counter) { panic("listener bug") })
	s.Subscribe(func(next, prev counter) { second++ })

	err := s.SetState(func(c counter) (counter, error) {
		c.Count = 1
		return c, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, second)
	assert.Equal(t, 1, s.GetState().Count)
	require.Len(t, reported, 1)
	assert.True(t, IsSubscriberPanic(reported[0]))
}

func TestStore_ReentrantSetStateIsDeferred(t *testing.T) {
	s := New(counter{})

	var order []string
	s.Subscribe(func(next, prev counter) {
		order = append(order, "a:"+next.Name)
		if next.Count == 1 {
			err := s.SetState(func(c counter) (counter, error) {
				c.Count = 2
				c.Name = "nested"
				return c, nil
			})
			assert.NoError(t, err)
			// Not applied yet; the fan-out for the first commit is still running.
			assert.Equal(t, 1, s.GetState().Count)
		}
	})
	s.Subscribe(func(next, prev counter) {
		order = append(order, "b:"+next.Name)
	})

	require.NoError(t, s.SetState(func(c counter) (counter, error) {
		c.Count = 1
		c.Name = "outer"
		return c, nil
	}))

	assert.Equal(t, []string{"a:outer", "b:outer", "a:nested", "b:nested"}, order)
	assert.Equal(t, counter{Count: 2, Name: "nested"}, s.GetState())
	assert.Equal(t, int64(2), s.Version())
}

func TestStore_DeferredErrorReported(t *testing.T) {
	var reported []error
	s := New(counter{}, WithErrorHandler[counter](func(err error) {
		reported = append(reported, err)
	}))

	s.Subscribe(func(next, prev counter) {
		if next.Count == 1 {
			_ = s.SetState(func(c counter) (counter, error) {
				return c, errors.New("nested failure")
			})
		}
	})

	require.NoError(t, s.SetState(func(c counter) (counter, error) {
		c.Count = 1
		return c, nil
	}))

	require.Len(t, reported, 1)
	assert.True(t, IsMutatorError(reported[0]))
}

func TestStore_DeferredPanicReported(t *testing.T) {
	var reported []error
	s := New(counter{}, WithErrorHandler[counter](func(err error) {
		reported = append(reported, err)
	}))

	s.Subscribe(func(next, prev counter) {
		if next.Count != 1 {
			return
		}
		_ = s.SetState(func(c counter) (counter, error) {
			panic("deferred boom")
		}, Label("explode"))
		_ = s.SetState(func(c counter) (counter, error) {
			c.Name = "later"
			return c, nil
		})
	})

	var err error
	assert.NotPanics(t, func() {
		err = s.SetState(func(c counter) (counter, error) {
			c.Count = 1
			return c, nil
		})
	})
	require.NoError(t, err)

	assert.Equal(t, counter{Count: 1, Name: "later"}, s.GetState(), "mutations queued after the panic still run")
	require.Len(t, reported, 1)
	assert.True(t, IsMutatorError(reported[0]))
	assert.Contains(t, reported[0].Error(), "deferred boom")
	assert.Contains(t, reported[0].Error(), "action=explode")

	require.NoError(t, s.SetState(func(c counter) (counter, error) {
		c.Count = 2
		return c, nil
	}))
	assert.Equal(t, 2, s.GetState().Count)
}

func TestStore_ProduceWithoutDraft(t *testing.T) {
	s := New(counter{})

	err := s.Produce(func(c *counter) error {
		c.Count = 1
		return nil
	})

	require.Error(t, err)
	assert.True(t, IsDraftRequired(err))
	assert.Equal(t, 0, s.GetState().Count)
}

func TestStore_EmptyMutation(t *testing.T) {
	s := New(counter{})

	err := s.Dispatch(Mutation[counter]{Label: "noop"})

	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrCodeNoMutator, se.Code)
}

func TestStore_WithEquality(t *testing.T) {
	// Treat name-only changes as no change.
	s := New(counter{}, WithEquality(func(a, b counter) bool { return a.Count == b.Count }))

	notified := 0
	s.Subscribe(func(next, prev counter) { notified++ })

	require.NoError(t, s.SetState(func(c counter) (counter, error) {
		c.Name = "ignored"
		return c, nil
	}))

	assert.Equal(t, 0, notified)
	assert.Equal(t, "", s.GetState().Name)
}

func TestStore_MapWriteIsAChange(t *testing.T) {
	s := New(board{Items: MapOf(map[string]int{"a": 1})})

	var prevSeen, nextSeen board
	s.Subscribe(func(next, prev board) {
		nextSeen, prevSeen = next, prev
	})

	require.NoError(t, s.SetState(func(b board) (board, error) {
		b.Items.Set("b", 2)
		return b, nil
	}))

	assert.Equal(t, 2, nextSeen.Items.Len())
	assert.Equal(t, 1, prevSeen.Items.Len())
	assert.False(t, prevSeen.Items.Has("b"))
}

func TestStore_MiddlewareOrder(t *testing.T) {
	var trace []string
	layer := func(name string) Middleware[counter] {
		return MiddlewareFunc[counter](func(next SetFunc[counter], api API[counter]) SetFunc[counter] {
			return func(m Mutation[counter]) error {
				trace = append(trace, name+":before")
				err := next(m)
				trace = append(trace, name+":after")
				return err
			}
		})
	}

	s := New(counter{}, WithMiddleware(layer("outer"), layer("inner")))
	s.Subscribe(func(next, prev counter) { trace = append(trace, "notify") })

	require.NoError(t, s.SetState(func(c counter) (counter, error) {
		c.Count = 1
		return c, nil
	}))

	assert.Equal(t, []string{
		"outer:before",
		"inner:before",
		"notify",
		"inner:after",
		"outer:after",
	}, trace)
}

func TestStore_SingleWriterWithConcurrentReaders(t *testing.T) {
	s := New(counter{})

	stop := make(chan struct{})
	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			last := 0
			for {
				select {
				case <-stop:
					return
				default:
				}
				got := s.GetState().Count
				assert.GreaterOrEqual(t, got, last, "snapshots never go backwards")
				last = got
				unsubscribe := s.Subscribe(func(next, prev counter) {})
				unsubscribe()
			}
		}()
	}

	for i := 1; i <= 200; i++ {
		if i == 100 {
			err := s.SetState(func(c counter) (counter, error) {
				return c, errors.New("rejected")
			})
			require.True(t, IsMutatorError(err), "the writer gets its own error back")
		}
		require.NoError(t, s.SetState(func(c counter) (counter, error) {
			c.Count++
			return c, nil
		}))
		require.Equal(t, i, s.GetState().Count, "commit is visible when SetState returns")
	}

	close(stop)
	readers.Wait()
	assert.Equal(t, int64(200), s.Version())
}
