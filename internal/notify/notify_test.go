package notify

import "testing"

func TestPublishFanOut(t *testing.T) {
	h := New()
	a, b := NewChan("a", 4), NewChan("b", 4)
	h.Register(a)
	h.Register(b)

	h.Publish(NewInfo("Text sent to Dropbox", nil))

	for _, c := range []*Chan{a, b} {
		select {
		case st := <-c.C:
			if st.Message != "Text sent to Dropbox" || st.Kind != Info {
				t.Errorf("%s got %+v", c.ID(), st)
			}
		default:
			t.Errorf("%s received nothing", c.ID())
		}
	}

	h.Unregister(b)
	h.Publish(NewWarning("Clipboard is empty"))
	if len(b.C) != 0 {
		t.Error("unregistered subscriber still notified")
	}
	if st := <-a.C; st.Kind != Warning {
		t.Errorf("kind = %v, want warning", st.Kind)
	}
}

func TestLatest(t *testing.T) {
	h := New()
	if _, ok := h.Latest(); ok {
		t.Fatal("empty hub has a latest status")
	}
	h.Publish(Status{Message: "one"})
	h.Publish(Status{Message: "two"})
	st, ok := h.Latest()
	if !ok || st.Message != "two" {
		t.Errorf("Latest = %+v, %v", st, ok)
	}
	if st.Time.IsZero() {
		t.Error("Publish did not stamp the time")
	}
}

func TestChanDropsWhenFull(t *testing.T) {
	c := NewChan("small", 1)
	c.Notify(Status{Message: "kept"})
	c.Notify(Status{Message: "dropped"})
	if got := (<-c.C).Message; got != "kept" {
		t.Errorf("got %q, want kept", got)
	}
	if len(c.C) != 0 {
		t.Error("overflow status was buffered")
	}
}

func TestKind(t *testing.T) {
	for _, k := range []Kind{Info, Warning} {
		if ParseKind(k.String()) != k {
			t.Errorf("ParseKind(%q) != %v", k.String(), k)
		}
	}
}
