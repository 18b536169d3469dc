package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/golf-society/models"
	"github.com/Dosada05/golf-society/repositories"
	"github.com/Dosada05/golf-society/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return baseTime.Add(time.Duration(minutes) * time.Minute)
}

// --- league / score ---

type fakeLeagueStore struct {
	leagues     map[int]*models.League
	tournaments map[int][]models.Tournament // by league
	members     map[int]map[int]*models.LeagueMember
	setCalls    int
}

func newFakeLeagueStore() *fakeLeagueStore {
	return &fakeLeagueStore{
		leagues:     make(map[int]*models.League),
		tournaments: make(map[int][]models.Tournament),
		members:     make(map[int]map[int]*models.LeagueMember),
	}
}

func (f *fakeLeagueStore) addLeague(id int, policy string) {
	l := &models.League{ID: id, Name: "League", CreatedAt: baseTime}
	if policy != "" {
		l.PointsSystem = []byte(policy)
	}
	f.leagues[id] = l
	f.members[id] = make(map[int]*models.LeagueMember)
}

func (f *fakeLeagueStore) addMember(leagueID, userID, seasonPoints, eventsPlayed int) {
	f.members[leagueID][userID] = &models.LeagueMember{
		ID:           len(f.members[leagueID]) + 1,
		LeagueID:     leagueID,
		UserID:       userID,
		SeasonPoints: seasonPoints,
		EventsPlayed: eventsPlayed,
	}
}

// addTournament stores scores given as userID -> net score pairs, in order.
func (f *fakeLeagueStore) addTournament(leagueID, tournamentID int, status models.TournamentStatus, results ...[2]int) {
	league := leagueID
	t := models.Tournament{ID: tournamentID, Name: "Round", LeagueID: &league, Status: status}
	for i, r := range results {
		t.Scores = append(t.Scores, models.TournamentScore{
			ID:           tournamentID*100 + i + 1,
			TournamentID: tournamentID,
			UserID:       r[0],
			NetScore:     r[1],
			CreatedAt:    at(i),
		})
	}
	f.tournaments[leagueID] = append(f.tournaments[leagueID], t)
}

func (f *fakeLeagueStore) member(leagueID, userID int) models.LeagueMember {
	return *f.members[leagueID][userID]
}

func (f *fakeLeagueStore) GetByID(ctx context.Context, id int) (*models.League, error) {
	l, ok := f.leagues[id]
	if !ok {
		return nil, repositories.ErrLeagueNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLeagueStore) GetTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	for _, ts := range f.tournaments {
		for _, t := range ts {
			if t.ID == tournamentID {
				cp := t
				cp.Scores = nil
				return &cp, nil
			}
		}
	}
	return nil, repositories.ErrTournamentNotFound
}

func (f *fakeLeagueStore) ListCompletedTournaments(ctx context.Context, leagueID int) ([]models.Tournament, error) {
	var out []models.Tournament
	for _, t := range f.tournaments[leagueID] {
		if t.IsCompleted() {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeLeagueStore) ListMembers(ctx context.Context, leagueID int) ([]models.LeagueMember, error) {
	var out []models.LeagueMember
	for _, m := range f.members[leagueID] {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SeasonPoints != out[j].SeasonPoints {
			return out[i].SeasonPoints > out[j].SeasonPoints
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (f *fakeLeagueStore) SetMemberStanding(ctx context.Context, leagueID, userID, seasonPoints, eventsPlayed int) error {
	f.setCalls++
	m, ok := f.members[leagueID][userID]
	if !ok {
		return repositories.ErrLeagueMemberNotFound
	}
	m.SeasonPoints = seasonPoints
	m.EventsPlayed = eventsPlayed
	return nil
}

func (f *fakeLeagueStore) IncrementMemberStanding(ctx context.Context, leagueID, userID, points int) (*models.LeagueMember, error) {
	m, ok := f.members[leagueID][userID]
	if !ok {
		return nil, repositories.ErrLeagueMemberNotFound
	}
	m.SeasonPoints += points
	m.EventsPlayed++
	cp := *m
	return &cp, nil
}

func (f *fakeLeagueStore) ResetMembers(ctx context.Context, leagueID int) (int64, error) {
	var n int64
	for _, m := range f.members[leagueID] {
		m.SeasonPoints = 0
		m.EventsPlayed = 0
		n++
	}
	return n, nil
}

// ListByTournament makes the store usable as a ScoreRepository too.
func (f *fakeLeagueStore) ListByTournament(ctx context.Context, tournamentID int) ([]models.TournamentScore, error) {
	for _, ts := range f.tournaments {
		for _, t := range ts {
			if t.ID == tournamentID {
				return append([]models.TournamentScore(nil), t.Scores...), nil
			}
		}
	}
	return nil, nil
}

// --- legacy ---

type legacyState struct {
	legacyTables bool
	societies    []models.Society
	users        []models.User
	tournaments  []models.Tournament
	scores       []models.TournamentScore
	clubs        []models.Club
	members      []models.ClubMember
	participants []models.TournamentParticipant
}

func (s legacyState) clone() legacyState {
	cp := s
	cp.societies = append([]models.Society(nil), s.societies...)
	cp.users = append([]models.User(nil), s.users...)
	cp.tournaments = append([]models.Tournament(nil), s.tournaments...)
	cp.scores = append([]models.TournamentScore(nil), s.scores...)
	cp.clubs = append([]models.Club(nil), s.clubs...)
	cp.members = append([]models.ClubMember(nil), s.members...)
	cp.participants = append([]models.TournamentParticipant(nil), s.participants...)
	return cp
}

type fakeLegacyRepo struct {
	state legacyState
	// skipParticipant drops these (tournament, user) pairs on insert so a
	// score ends up without a participant.
	skipParticipant map[[2]int]bool
	failOn          string
}

var errInjected = errors.New("injected failure")

func newFakeLegacyRepo() *fakeLegacyRepo {
	return &fakeLegacyRepo{state: legacyState{legacyTables: true}, skipParticipant: make(map[[2]int]bool)}
}

func (f *fakeLegacyRepo) addSociety(id int, name string) {
	f.state.societies = append(f.state.societies, models.Society{ID: id, Name: name, CreatedAt: baseTime, UpdatedAt: baseTime})
}

func (f *fakeLegacyRepo) addUser(id, societyID int, role models.LegacyRole, createdAt time.Time) {
	society := societyID
	f.state.users = append(f.state.users, models.User{ID: id, Name: "user", Role: role, SocietyID: &society, CreatedAt: createdAt})
}

func (f *fakeLegacyRepo) addTournament(id, societyID int) {
	society := societyID
	f.state.tournaments = append(f.state.tournaments, models.Tournament{ID: id, Name: "Round", SocietyID: &society, Status: models.StatusCompleted})
}

func (f *fakeLegacyRepo) addScore(id, tournamentID, userID, net int) {
	f.state.scores = append(f.state.scores, models.TournamentScore{ID: id, TournamentID: tournamentID, UserID: userID, NetScore: net, CreatedAt: at(id)})
}

func (f *fakeLegacyRepo) fail(op string) error {
	if f.failOn == op {
		return errInjected
	}
	return nil
}

func (f *fakeLegacyRepo) LegacySchemaPresent(ctx context.Context) (bool, error) {
	return f.state.legacyTables, nil
}

func (f *fakeLegacyRepo) CountClubs(ctx context.Context) (int, error) {
	return len(f.state.clubs), nil
}

func (f *fakeLegacyRepo) ListSocieties(ctx context.Context) ([]models.Society, error) {
	return append([]models.Society(nil), f.state.societies...), nil
}

func (f *fakeLegacyRepo) ListSocietyUsers(ctx context.Context) ([]models.User, error) {
	return append([]models.User(nil), f.state.users...), nil
}

func (f *fakeLegacyRepo) ListSocietyTournaments(ctx context.Context) ([]models.Tournament, error) {
	return append([]models.Tournament(nil), f.state.tournaments...), nil
}

func (f *fakeLegacyRepo) ListScores(ctx context.Context) ([]models.TournamentScore, error) {
	return append([]models.TournamentScore(nil), f.state.scores...), nil
}

func (f *fakeLegacyRepo) ListParticipants(ctx context.Context) ([]models.TournamentParticipant, error) {
	return append([]models.TournamentParticipant(nil), f.state.participants...), nil
}

func (f *fakeLegacyRepo) InsertClubs(ctx context.Context, clubs []models.Club) error {
	if err := f.fail("InsertClubs"); err != nil {
		return err
	}
	f.state.clubs = append(f.state.clubs, clubs...)
	return nil
}

func (f *fakeLegacyRepo) InsertClubMembers(ctx context.Context, members []models.ClubMember) error {
	if err := f.fail("InsertClubMembers"); err != nil {
		return err
	}
	f.state.members = append(f.state.members, members...)
	return nil
}

func (f *fakeLegacyRepo) InsertParticipants(ctx context.Context, participants []models.TournamentParticipant) (int, error) {
	inserted := 0
	for _, p := range participants {
		if f.skipParticipant[[2]int{p.TournamentID, p.UserID}] {
			continue
		}
		p.ID = len(f.state.participants) + 1
		f.state.participants = append(f.state.participants, p)
		inserted++
	}
	return inserted, nil
}

func (f *fakeLegacyRepo) LinkTournaments(ctx context.Context, tournaments []models.Tournament) error {
	if err := f.fail("LinkTournaments"); err != nil {
		return err
	}
	for _, linked := range tournaments {
		for i := range f.state.tournaments {
			if f.state.tournaments[i].ID == linked.ID {
				f.state.tournaments[i] = linked
			}
		}
	}
	return nil
}

func (f *fakeLegacyRepo) SetScoreParticipant(ctx context.Context, scoreID, participantID int) error {
	for i := range f.state.scores {
		if f.state.scores[i].ID == scoreID {
			id := participantID
			f.state.scores[i].ParticipantID = &id
			return nil
		}
	}
	return repositories.ErrScoreNotFound
}

func (f *fakeLegacyRepo) club(id int) (models.Club, bool) {
	for _, c := range f.state.clubs {
		if c.ID == id {
			return c, true
		}
	}
	return models.Club{}, false
}

func (f *fakeLegacyRepo) memberRole(clubID, userID int) models.ClubRole {
	for _, m := range f.state.members {
		if m.ClubID == clubID && m.UserID == userID {
			return m.Role
		}
	}
	return ""
}

// fakeTxRunner restores the repository state when the block fails, the way
// a rolled back transaction would.
type fakeTxRunner struct {
	repo         *fakeLegacyRepo
	rollbackOnly bool
	calls        int
}

func (r *fakeTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, repo repositories.LegacyRepository) error) error {
	r.calls++
	saved := r.repo.state.clone()
	if err := fn(ctx, r.repo); err != nil {
		r.repo.state = saved
		return err
	}
	if r.rollbackOnly {
		r.repo.state = saved
	}
	return nil
}

// --- storage ---

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (s *fakeObjectStore) Put(ctx context.Context, key string, contentType string, body io.Reader) (*storage.PutResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = buf.Bytes()
	return &storage.PutResult{Key: key, ETag: "etag"}, nil
}

// --- report ---

type fakeReportRepo struct {
	clubs              int
	roles              map[string]int
	participants       int
	usersWithout       int
	tournamentsWithout int
	scoresWithout      int
	err                error
}

func (f *fakeReportRepo) CountClubs(ctx context.Context) (int, error) { return f.clubs, f.err }
func (f *fakeReportRepo) CountClubMembersByRole(ctx context.Context) (map[string]int, error) {
	return f.roles, nil
}
func (f *fakeReportRepo) CountParticipants(ctx context.Context) (int, error) { return f.participants, nil }
func (f *fakeReportRepo) CountSocietyUsersWithoutMembership(ctx context.Context) (int, error) {
	return f.usersWithout, nil
}
func (f *fakeReportRepo) CountTournamentsWithoutClub(ctx context.Context) (int, error) {
	return f.tournamentsWithout, nil
}
func (f *fakeReportRepo) CountScoresWithoutParticipant(ctx context.Context) (int, error) {
	return f.scoresWithout, nil
}
