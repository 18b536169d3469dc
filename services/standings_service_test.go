package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Dosada05/golf-society/models"
	"github.com/Dosada05/golf-society/points"
)

func newStandingsFixture() (*fakeLeagueStore, StandingsService) {
	store := newFakeLeagueStore()
	return store, NewStandingsService(store, store, discardLogger())
}

func TestCalculateLeagueStandingsDefaultPolicy(t *testing.T) {
	store, svc := newStandingsFixture()
	store.addLeague(1, "")
	store.addMember(1, 1, 0, 0) // A
	store.addMember(1, 2, 0, 0) // B
	store.addMember(1, 3, 0, 0) // C
	store.addTournament(1, 10, models.StatusCompleted, [2]int{1, 70}, [2]int{2, 68}, [2]int{3, 75})

	got, err := svc.CalculateLeagueStandings(context.Background(), 1)
	if err != nil {
		t.Fatalf("CalculateLeagueStandings: %v", err)
	}
	want := map[int]points.Standing{
		2: {Points: 10, EventsPlayed: 1},
		1: {Points: 7, EventsPlayed: 1},
		3: {Points: 5, EventsPlayed: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("standings = %v, want %v", got, want)
	}
	for userID, st := range want {
		m := store.member(1, userID)
		if m.SeasonPoints != st.Points || m.EventsPlayed != st.EventsPlayed {
			t.Errorf("member %d stored %d/%d, want %d/%d", userID, m.SeasonPoints, m.EventsPlayed, st.Points, st.EventsPlayed)
		}
	}
}

func TestCalculateLeagueStandingsPositionsBeyondPodium(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		want   map[int]int
	}{
		{
			name:   "participation for fourth and fifth",
			policy: `{"win":10,"second":7,"third":5,"participation":1}`,
			want:   map[int]int{1: 10, 2: 7, 3: 5, 4: 1, 5: 1},
		},
		{
			name:   "position override",
			policy: `{"win":20,"second":15,"third":10,"participation":2,"position4":6}`,
			want:   map[int]int{1: 20, 2: 15, 3: 10, 4: 6, 5: 2},
		},
		{
			name:   "malformed policy falls back to default",
			policy: `{"win":"lots"}`,
			want:   map[int]int{1: 10, 2: 7, 3: 5, 4: 1, 5: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, svc := newStandingsFixture()
			store.addLeague(1, tt.policy)
			for userID := 1; userID <= 5; userID++ {
				store.addMember(1, userID, 0, 0)
			}
			store.addTournament(1, 10, models.StatusCompleted,
				[2]int{1, 66}, [2]int{2, 67}, [2]int{3, 68}, [2]int{4, 69}, [2]int{5, 70})

			got, err := svc.CalculateLeagueStandings(context.Background(), 1)
			if err != nil {
				t.Fatalf("CalculateLeagueStandings: %v", err)
			}
			for userID, pts := range tt.want {
				if got[userID].Points != pts {
					t.Errorf("user %d got %d points, want %d", userID, got[userID].Points, pts)
				}
			}
		})
	}
}

func TestCalculateLeagueStandingsAccumulatesCompletedOnly(t *testing.T) {
	store, svc := newStandingsFixture()
	store.addLeague(1, "")
	store.addMember(1, 1, 0, 0)
	store.addMember(1, 2, 0, 0)
	store.addMember(1, 3, 40, 4) // no completed results, must stay as is
	store.addTournament(1, 10, models.StatusCompleted, [2]int{1, 70}, [2]int{2, 72})
	store.addTournament(1, 11, models.StatusCompleted, [2]int{2, 69}, [2]int{1, 71})
	store.addTournament(1, 12, models.StatusActive, [2]int{3, 60}, [2]int{1, 80})

	got, err := svc.CalculateLeagueStandings(context.Background(), 1)
	if err != nil {
		t.Fatalf("CalculateLeagueStandings: %v", err)
	}
	if got[1] != (points.Standing{Points: 17, EventsPlayed: 2}) {
		t.Errorf("user 1 = %+v", got[1])
	}
	if got[2] != (points.Standing{Points: 17, EventsPlayed: 2}) {
		t.Errorf("user 2 = %+v", got[2])
	}
	if _, ok := got[3]; ok {
		t.Error("user 3 should not appear without completed results")
	}
	if m := store.member(1, 3); m.SeasonPoints != 40 || m.EventsPlayed != 4 {
		t.Errorf("user 3 was touched: %+v", m)
	}
}

func TestRecalculateLeagueStandingsIsIdempotent(t *testing.T) {
	store, svc := newStandingsFixture()
	store.addLeague(1, "")
	store.addMember(1, 1, 99, 9)
	store.addMember(1, 2, 0, 0)
	store.addMember(1, 3, 12, 3)
	store.addTournament(1, 10, models.StatusCompleted, [2]int{1, 70}, [2]int{2, 68})

	ctx := context.Background()
	first, err := svc.RecalculateLeagueStandings(ctx, 1)
	if err != nil {
		t.Fatalf("first recalculation: %v", err)
	}
	table1, _ := svc.LeagueTable(ctx, 1)

	second, err := svc.RecalculateLeagueStandings(ctx, 1)
	if err != nil {
		t.Fatalf("second recalculation: %v", err)
	}
	table2, _ := svc.LeagueTable(ctx, 1)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ: %v vs %v", first, second)
	}
	if !reflect.DeepEqual(table1, table2) {
		t.Fatalf("tables differ: %v vs %v", table1, table2)
	}
	if m := store.member(1, 3); m.SeasonPoints != 0 || m.EventsPlayed != 0 {
		t.Errorf("member without history should be reset, got %+v", m)
	}
	if m := store.member(1, 1); m.SeasonPoints != 7 || m.EventsPlayed != 1 {
		t.Errorf("member 1 = %+v, want 7/1", m)
	}
}

func TestUpdateMemberPointsMatchesRecalculation(t *testing.T) {
	store, svc := newStandingsFixture()
	store.addLeague(1, "")
	store.addMember(1, 1, 0, 0)
	store.addMember(1, 2, 0, 0)
	store.addMember(1, 3, 0, 0)
	store.addTournament(1, 10, models.StatusCompleted, [2]int{1, 70}, [2]int{2, 68}, [2]int{3, 75})

	ctx := context.Background()
	res, err := svc.UpdateMemberPoints(ctx, 1, 1, 10)
	if err != nil {
		t.Fatalf("UpdateMemberPoints: %v", err)
	}
	if res.Position != 2 || res.Points != 7 {
		t.Fatalf("result = %+v, want position 2 with 7 points", res)
	}
	incremental := store.member(1, 1).SeasonPoints

	if _, err := svc.RecalculateLeagueStandings(ctx, 1); err != nil {
		t.Fatalf("RecalculateLeagueStandings: %v", err)
	}
	if batch := store.member(1, 1).SeasonPoints; batch != incremental {
		t.Fatalf("batch %d != incremental %d", batch, incremental)
	}
}

func TestUpdateMemberPointsIncrements(t *testing.T) {
	store, svc := newStandingsFixture()
	store.addLeague(1, "")
	store.addMember(1, 2, 30, 3)
	store.addTournament(1, 10, models.StatusCompleted, [2]int{1, 70}, [2]int{2, 68})

	if _, err := svc.UpdateMemberPoints(context.Background(), 1, 2, 10); err != nil {
		t.Fatalf("UpdateMemberPoints: %v", err)
	}
	if m := store.member(1, 2); m.SeasonPoints != 40 || m.EventsPlayed != 4 {
		t.Fatalf("member = %+v, want 40/4", m)
	}
}

func TestStandingsNotFound(t *testing.T) {
	store, svc := newStandingsFixture()
	store.addLeague(1, "")
	store.addMember(1, 1, 0, 0)
	store.addTournament(1, 10, models.StatusCompleted, [2]int{1, 70}, [2]int{2, 68})
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"calculate unknown league", func() error {
			_, err := svc.CalculateLeagueStandings(ctx, 42)
			return err
		}, ErrLeagueNotFound},
		{"recalculate unknown league", func() error {
			_, err := svc.RecalculateLeagueStandings(ctx, 42)
			return err
		}, ErrLeagueNotFound},
		{"calculate with scorer outside league", func() error {
			_, err := svc.CalculateLeagueStandings(ctx, 1)
			return err
		}, ErrLeagueMemberNotFound},
		{"update unknown league", func() error {
			_, err := svc.UpdateMemberPoints(ctx, 42, 1, 10)
			return err
		}, ErrLeagueNotFound},
		{"update user without score", func() error {
			_, err := svc.UpdateMemberPoints(ctx, 1, 7, 10)
			return err
		}, ErrScoreNotFound},
		{"update user outside league", func() error {
			_, err := svc.UpdateMemberPoints(ctx, 1, 2, 10)
			return err
		}, ErrLeagueMemberNotFound},
		{"table unknown league", func() error {
			_, err := svc.LeagueTable(ctx, 42)
			return err
		}, ErrLeagueNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("error %v does not wrap ErrNotFound", err)
			}
		})
	}
}

func TestLeagueTableOrder(t *testing.T) {
	store, svc := newStandingsFixture()
	store.addLeague(1, "")
	store.addMember(1, 1, 5, 1)
	store.addMember(1, 2, 17, 2)
	store.addMember(1, 3, 10, 1)

	members, err := svc.LeagueTable(context.Background(), 1)
	if err != nil {
		t.Fatalf("LeagueTable: %v", err)
	}
	var order []int
	for _, m := range members {
		order = append(order, m.UserID)
	}
	if !reflect.DeepEqual(order, []int{2, 3, 1}) {
		t.Fatalf("order = %v", order)
	}
}

func TestStandingsNonMemberScorerWritesNothing(t *testing.T) {
	tests := []struct {
		name string
		run  func(svc StandingsService) error
	}{
		{"calculate", func(svc StandingsService) error {
			_, err := svc.CalculateLeagueStandings(context.Background(), 1)
			return err
		}},
		{"recalculate", func(svc StandingsService) error {
			_, err := svc.RecalculateLeagueStandings(context.Background(), 1)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, svc := newStandingsFixture()
			store.addLeague(1, "")
			for userID := 1; userID <= 5; userID++ {
				store.addMember(1, userID, 50+userID, 6)
			}
			// 99 играл в турнире, но не состоит в лиге.
			store.addTournament(1, 10, models.StatusCompleted,
				[2]int{1, 70}, [2]int{2, 71}, [2]int{99, 72}, [2]int{3, 73}, [2]int{4, 74}, [2]int{5, 75})

			err := tt.run(svc)
			if !errors.Is(err, ErrLeagueMemberNotFound) {
				t.Fatalf("error = %v, want ErrLeagueMemberNotFound", err)
			}
			if store.setCalls != 0 {
				t.Fatalf("%d member rows written before the error", store.setCalls)
			}
			for userID := 1; userID <= 5; userID++ {
				if m := store.member(1, userID); m.SeasonPoints != 50+userID || m.EventsPlayed != 6 {
					t.Errorf("member %d changed to %d/%d", userID, m.SeasonPoints, m.EventsPlayed)
				}
			}
		})
	}
}

func TestUpdateMemberPointsRequiresCompletedLeagueTournament(t *testing.T) {
	store, svc := newStandingsFixture()
	store.addLeague(1, "")
	store.addLeague(2, "")
	store.addMember(1, 1, 20, 2)
	store.addTournament(1, 10, models.StatusActive, [2]int{1, 70})
	store.addTournament(2, 20, models.StatusCompleted, [2]int{1, 70})

	tests := []struct {
		name         string
		tournamentID int
	}{
		{"not completed", 10},
		{"other league", 20},
		{"unknown tournament", 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateMemberPoints(context.Background(), 1, 1, tt.tournamentID)
			if !errors.Is(err, ErrTournamentNotFound) || !errors.Is(err, ErrNotFound) {
				t.Fatalf("error = %v, want ErrTournamentNotFound", err)
			}
			if m := store.member(1, 1); m.SeasonPoints != 20 || m.EventsPlayed != 2 {
				t.Fatalf("member changed to %d/%d", m.SeasonPoints, m.EventsPlayed)
			}
		})
	}
}
