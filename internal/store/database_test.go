package store

import (
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/hyperengineering/invrestore/internal/event"
	"github.com/hyperengineering/invrestore/internal/snapshot"
)

func TestEnforceLimits_PerOwnerKeepsMostRecent(t *testing.T) {
	db := NewDatabase()
	db.Snapshots = series("a", alice, 3, 0)

	evicted := db.EnforceLimits(2, 100)

	if evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
	if got, want := ids(db.Snapshots), []string{"a1", "a2"}; !slices.Equal(got, want) {
		t.Errorf("kept = %v, want %v", got, want)
	}
}

func TestEnforceLimits_TotalDropsOldestOverall(t *testing.T) {
	db := NewDatabase()
	db.Snapshots = append(series("a", alice, 3, 0), series("b", bob, 3, 30*time.Second)...)

	db.EnforceLimits(10, 4)

	// a0 (0s) and b0 (30s) are the two oldest.
	if got, want := ids(db.Snapshots), []string{"a1", "b1", "a2", "b2"}; !slices.Equal(got, want) {
		t.Errorf("kept = %v, want %v", got, want)
	}
}

func TestEnforceLimits_Fairness(t *testing.T) {
	// One prolific owner must not starve the others within the total limit.
	db := NewDatabase()
	db.Snapshots = append(db.Snapshots, series("a", alice, 40, time.Hour)...)
	db.Snapshots = append(db.Snapshots, series("b", bob, 2, 0)...)
	db.Snapshots = append(db.Snapshots, series("c", carol, 2, time.Minute)...)

	db.EnforceLimits(5, 9)

	counts := map[uuid.UUID]int{}
	for _, s := range db.Snapshots {
		counts[s.OwnerID]++
	}
	if counts[alice] != 5 || counts[bob] != 2 || counts[carol] != 2 {
		t.Errorf("per-owner counts = %v, want alice 5, bob 2, carol 2", counts)
	}
	if got, want := ids(db.Snapshots)[4:], []string{"a35", "a36", "a37", "a38", "a39"}; !slices.Equal(got, want) {
		t.Errorf("alice kept = %v, want %v", got, want)
	}
}

func TestEnforceLimits_Property(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	owners := []uuid.UUID{alice, bob, carol}

	for round := 0; round < 50; round++ {
		db := NewDatabase()
		n := rng.Intn(60)
		offsets := rng.Perm(n)
		for i := 0; i < n; i++ {
			owner := owners[rng.Intn(len(owners))]
			offset := time.Duration(offsets[i]) * time.Second
			db.Snapshots = append(db.Snapshots, snap(fmt.Sprintf("s%d", i), owner, offset, event.Join{}))
		}
		maxPer, maxTotal := 1+rng.Intn(10), 1+rng.Intn(25)
		original := slices.Clone(db.Snapshots)

		db.EnforceLimits(maxPer, maxTotal)

		// Expected: each owner's maxPer newest, then the maxTotal newest overall.
		var expected []snapshot.Snapshot
		for _, owner := range owners {
			var g []snapshot.Snapshot
			for _, s := range original {
				if s.OwnerID == owner {
					g = append(g, s)
				}
			}
			slices.SortStableFunc(g, snapshot.CompareOldestFirst)
			if len(g) > maxPer {
				g = g[len(g)-maxPer:]
			}
			expected = append(expected, g...)
		}
		slices.SortStableFunc(expected, snapshot.CompareOldestFirst)
		if len(expected) > maxTotal {
			expected = expected[len(expected)-maxTotal:]
		}

		if len(db.Snapshots) > maxTotal {
			t.Fatalf("round %d: total %d exceeds %d", round, len(db.Snapshots), maxTotal)
		}
		perOwner := map[uuid.UUID]int{}
		for _, s := range db.Snapshots {
			perOwner[s.OwnerID]++
			if perOwner[s.OwnerID] > maxPer {
				t.Fatalf("round %d: owner %s exceeds %d", round, s.OwnerID, maxPer)
			}
		}
		if !sameIDs(db.Snapshots, expected) {
			t.Fatalf("round %d: retained set differs from expected", round)
		}
		for i := 1; i < len(db.Snapshots); i++ {
			if db.Snapshots[i].Time.Before(db.Snapshots[i-1].Time) {
				t.Fatalf("round %d: result not sorted oldest first", round)
			}
		}
	}
}

func sameIDs(a, b []snapshot.Snapshot) bool {
	return slices.Equal(ids(a), ids(b))
}

func TestDatabase_JSONRoundTrip(t *testing.T) {
	db := NewDatabase()
	db.Snapshots = []snapshot.Snapshot{
		snap("s1", alice, 0, event.Join{}),
		snap("s2", bob, time.Minute, event.Death{Message: "Bob fell from a high place"}),
		snap("s3", alice, 2*time.Minute, event.LevelChange{Origin: event.Overworld, Destination: event.Nether}),
	}
	db.Preferences[alice] = Preferences{Timezone: "Europe/Berlin"}

	data, err := json.Marshal(db)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, field := range []string{`"format_version":1`, `"snapshots"`, `"player_preferences"`, alice.String()} {
		if !strings.Contains(string(data), field) {
			t.Errorf("encoded database missing %s", field)
		}
	}

	var got Database
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	assertDatabaseEqual(t, &got, db)
}

func assertDatabaseEqual(t *testing.T, got, want *Database) {
	t.Helper()
	if got.Format != want.Format {
		t.Errorf("Format = %d, want %d", got.Format, want.Format)
	}
	if len(got.Snapshots) != len(want.Snapshots) {
		t.Fatalf("len(Snapshots) = %d, want %d", len(got.Snapshots), len(want.Snapshots))
	}
	for i := range want.Snapshots {
		g, w := got.Snapshots[i], want.Snapshots[i]
		if g.ID != w.ID || g.OwnerID != w.OwnerID || g.OwnerName != w.OwnerName ||
			!g.Time.Equal(w.Time) || g.Zone != w.Zone || g.Position != w.Position || g.Event != w.Event {
			t.Errorf("snapshot %d = %+v, want %+v", i, g, w)
		}
		if !g.Contents.Equal(&w.Contents) {
			t.Errorf("snapshot %d contents differ", i)
		}
	}
	if len(got.Preferences) != len(want.Preferences) {
		t.Errorf("Preferences = %v, want %v", got.Preferences, want.Preferences)
	}
	for id, p := range want.Preferences {
		if got.Preferences[id] != p {
			t.Errorf("Preferences[%s] = %+v, want %+v", id, got.Preferences[id], p)
		}
	}
}

func TestDatabase_UnmarshalDefaults(t *testing.T) {
	var db Database
	if err := json.Unmarshal([]byte(`{"format_version":1}`), &db); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(db.Snapshots) != 0 {
		t.Errorf("Snapshots = %v, want empty", db.Snapshots)
	}
	if db.Preferences == nil {
		t.Error("Preferences should be an empty map, got nil")
	}
}

func TestDatabase_UnmarshalRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing version", `{"snapshots":[]}`},
		{"future version", `{"format_version":99}`},
		{"bad preference key", `{"format_version":1,"player_preferences":{"steve":{}}}`},
		{"bad timezone", `{"format_version":1,"player_preferences":{"` + alice.String() + `":{"timezone":"Mars/Base"}}}`},
		{"unknown event", `{"format_version":1,"snapshots":[{"id":"x","event":{"type":"teleport"},
			"player_uuid":"` + alice.String() + `","player_name":"Alice","time":"2024-05-01T12:00:00Z",
			"dimension":"minecraft:overworld","position":[0,0,0],"contents":{}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var db Database
			if err := json.Unmarshal([]byte(tt.raw), &db); err == nil {
				t.Error("Unmarshal() expected error, got nil")
			}
		})
	}
}

func TestPreferences_Location(t *testing.T) {
	fallback := time.UTC
	if got := (Preferences{}).Location(fallback); got != fallback {
		t.Errorf("empty Location() = %v, want fallback", got)
	}
	if got := (Preferences{Timezone: "Asia/Tokyo"}).Location(fallback); got.String() != "Asia/Tokyo" {
		t.Errorf("Location() = %v, want Asia/Tokyo", got)
	}
	if got := (Preferences{Timezone: "bogus"}).Location(fallback); got != fallback {
		t.Errorf("invalid Location() = %v, want fallback", got)
	}
}
