package presence

import (
	"context"
	"errors"
	"testing"

	"github.com/loykin/parley/internal/roomdir"
)

// fakeDir is a scripted Directory for presence tests.
type fakeDir struct {
	exists    bool
	existsErr error
	parts     []roomdir.Participant
	partsErr  error
}

func (f *fakeDir) RoomExists(ctx context.Context, name string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeDir) CreateRoom(ctx context.Context, name string, opts roomdir.RoomOptions) error {
	return nil
}

func (f *fakeDir) ListParticipants(ctx context.Context, room string) ([]roomdir.Participant, error) {
	return f.parts, f.partsErr
}

func TestUnknownRoomIsAbsent(t *testing.T) {
	c := NewChecker(&fakeDir{exists: false})
	res, err := c.Check(context.Background(), "ghost")
	if err != nil || res != Absent {
		t.Fatalf("want absent, got %v err=%v", res, err)
	}
}

func TestQueryFailureIsUnknownNotFalse(t *testing.T) {
	c := NewChecker(&fakeDir{existsErr: errors.New("dial tcp: refused")})
	res, err := c.Check(context.Background(), "r")
	if res != Unknown {
		t.Fatalf("query failure must be unknown, got %v", res)
	}
	if err == nil {
		t.Fatalf("underlying error must surface")
	}
	if res.Confirmed() != nil {
		t.Fatalf("unknown must not be representable as a boolean")
	}

	c = NewChecker(&fakeDir{exists: true, partsErr: errors.New("timeout")})
	if res, _ := c.Check(context.Background(), "r"); res != Unknown {
		t.Fatalf("participant query failure must be unknown, got %v", res)
	}
}

func TestStructuredKindWins(t *testing.T) {
	c := NewChecker(&fakeDir{exists: true, parts: []roomdir.Participant{
		{Identity: "carol"},
		{Identity: "totally-human", Kind: "AGENT"},
	}})
	res, err := c.Check(context.Background(), "r")
	if err != nil || res != Present {
		t.Fatalf("want present via kind, got %v err=%v", res, err)
	}
}

func TestMetadataFlag(t *testing.T) {
	cases := []string{`{"role":"agent"}`, `{"is_agent":true}`}
	for _, meta := range cases {
		c := NewChecker(&fakeDir{exists: true, parts: []roomdir.Participant{
			{Identity: "carol", Metadata: meta},
		}})
		if res, _ := c.Check(context.Background(), "r"); res != Present {
			t.Fatalf("metadata %q should mark presence, got %v", meta, res)
		}
	}
	// malformed metadata falls through to heuristics, not an error
	c := NewChecker(&fakeDir{exists: true, parts: []roomdir.Participant{
		{Identity: "carol", Metadata: "{not json"},
	}})
	if res, err := c.Check(context.Background(), "r"); res != Absent || err != nil {
		t.Fatalf("malformed metadata: got %v err=%v", res, err)
	}
}

func TestIdentityHeuristics(t *testing.T) {
	c := NewChecker(&fakeDir{exists: true, parts: []roomdir.Participant{
		{Identity: "alice"},
		{Identity: "Agent-study-1"},
	}})
	if res, _ := c.Check(context.Background(), "r"); res != Present {
		t.Fatalf("identity prefix should mark presence, got %v", res)
	}

	c = NewChecker(&fakeDir{exists: true, parts: []roomdir.Participant{
		{Identity: "alice"}, {Identity: "bob"},
	}})
	if res, _ := c.Check(context.Background(), "r"); res != Absent {
		t.Fatalf("humans only should be absent, got %v", res)
	}
}
