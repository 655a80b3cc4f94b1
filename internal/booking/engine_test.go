// internal/booking/engine_test.go
package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leaguehq/leaguehq/internal/db"
	"github.com/leaguehq/leaguehq/internal/testutil"
)

type engineFixture struct {
	engine     *Engine
	store      *db.DB
	leagueID   int64
	facilityID int64
	userID     int64
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	store := testutil.NewTestDB(t)
	leagueID := testutil.SeedLeague(t, store, "Metro League")
	facilityID := testutil.SeedFacility(t, store, leagueID, "Court A")
	userID := testutil.SeedUser(t, store, "Dana", "dana@example.com")

	return &engineFixture{
		engine:     NewEngine(store),
		store:      store,
		leagueID:   leagueID,
		facilityID: facilityID,
		userID:     userID,
	}
}

func (f *engineFixture) createParams(start, end time.Time) CreateParams {
	return CreateParams{
		LeagueID:   f.leagueID,
		FacilityID: f.facilityID,
		UserID:     f.userID,
		StartAt:    start,
		EndAt:      end,
	}
}

func window(hour int) (time.Time, time.Time) {
	start := time.Date(2026, 9, 14, hour, 0, 0, 0, time.UTC)
	return start, start.Add(time.Hour)
}

func TestCreateConfirmsBooking(t *testing.T) {
	f := newEngineFixture(t)
	start, end := window(10)

	result, err := f.engine.Create(context.Background(), f.createParams(start, end))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.Replay {
		t.Error("expected a fresh create, got a replay")
	}
	if result.Booking.Status != db.BookingStatusConfirmed {
		t.Errorf("status = %q, want %q", result.Booking.Status, db.BookingStatusConfirmed)
	}
	if result.Booking.QRCode == "" {
		t.Error("expected a check-in code")
	}
	if !result.Booking.StartAt.Equal(start) || !result.Booking.EndAt.Equal(end) {
		t.Errorf("window = [%v, %v), want [%v, %v)", result.Booking.StartAt, result.Booking.EndAt, start, end)
	}
}

func TestCreateRejectsInvalidWindow(t *testing.T) {
	f := newEngineFixture(t)
	start, end := window(10)

	cases := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{"zero start", time.Time{}, end},
		{"zero end", start, time.Time{}},
		{"end equals start", start, start},
		{"end before start", end, start},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Create(context.Background(), f.createParams(tc.start, tc.end))
			if !errors.Is(err, ErrInvalidWindow) {
				t.Errorf("err = %v, want ErrInvalidWindow", err)
			}
		})
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	f := newEngineFixture(t)
	start, end := window(10)

	if _, err := f.engine.Create(context.Background(), f.createParams(start, end)); err != nil {
		t.Fatalf("first create: %v", err)
	}

	cases := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{"identical window", start, end},
		{"straddles start", start.Add(-30 * time.Minute), start.Add(30 * time.Minute)},
		{"straddles end", end.Add(-30 * time.Minute), end.Add(30 * time.Minute)},
		{"contained", start.Add(15 * time.Minute), end.Add(-15 * time.Minute)},
		{"contains", start.Add(-time.Hour), end.Add(time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Create(context.Background(), f.createParams(tc.start, tc.end))
			if !errors.Is(err, ErrSlotConflict) {
				t.Errorf("err = %v, want ErrSlotConflict", err)
			}
		})
	}
}

func TestCreateAllowsTouchingWindows(t *testing.T) {
	f := newEngineFixture(t)
	start, end := window(10)

	if _, err := f.engine.Create(context.Background(), f.createParams(start, end)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	// [10:00, 11:00) and [11:00, 12:00) share only the boundary instant.
	if _, err := f.engine.Create(context.Background(), f.createParams(end, end.Add(time.Hour))); err != nil {
		t.Fatalf("adjacent create: %v", err)
	}
	if _, err := f.engine.Create(context.Background(), f.createParams(start.Add(-time.Hour), start)); err != nil {
		t.Fatalf("preceding create: %v", err)
	}
}

func TestCreateAllowsOverlapOnOtherFacility(t *testing.T) {
	f := newEngineFixture(t)
	otherFacility := testutil.SeedFacility(t, f.store, f.leagueID, "Court B")
	start, end := window(10)

	if _, err := f.engine.Create(context.Background(), f.createParams(start, end)); err != nil {
		t.Fatalf("first create: %v", err)
	}
	params := f.createParams(start, end)
	params.FacilityID = otherFacility
	if _, err := f.engine.Create(context.Background(), params); err != nil {
		t.Fatalf("create on other facility: %v", err)
	}
}

func TestCreateRejectsUnknownFacility(t *testing.T) {
	f := newEngineFixture(t)
	start, end := window(10)

	params := f.createParams(start, end)
	params.FacilityID = 9999
	if _, err := f.engine.Create(context.Background(), params); !errors.Is(err, ErrFacilityNotFound) {
		t.Errorf("err = %v, want ErrFacilityNotFound", err)
	}

	// A facility in another league is invisible to this one.
	otherLeague := testutil.SeedLeague(t, f.store, "Rival League")
	foreign := testutil.SeedFacility(t, f.store, otherLeague, "Court X")
	params.FacilityID = foreign
	if _, err := f.engine.Create(context.Background(), params); !errors.Is(err, ErrFacilityNotFound) {
		t.Errorf("err = %v, want ErrFacilityNotFound", err)
	}
}

func TestCreateReplaysIdempotencyKey(t *testing.T) {
	f := newEngineFixture(t)
	start, end := window(10)

	params := f.createParams(start, end)
	params.IdempotencyKey = "req-abc-123"

	first, err := f.engine.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if first.Replay {
		t.Error("first create reported as replay")
	}

	second, err := f.engine.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if !second.Replay {
		t.Error("second create not reported as replay")
	}
	if second.Booking.ID != first.Booking.ID {
		t.Errorf("replay id = %d, want %d", second.Booking.ID, first.Booking.ID)
	}
	if second.Booking.QRCode != first.Booking.QRCode {
		t.Error("replay returned a different check-in code")
	}

	bookings, err := f.store.Queries.ListBookingsByLeague(context.Background(), db.ListBookingsByLeagueParams{
		LeagueID: f.leagueID,
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bookings) != 1 {
		t.Errorf("bookings = %d, want 1", len(bookings))
	}
}

func TestCreateIdempotencyKeyScopedToLeague(t *testing.T) {
	f := newEngineFixture(t)
	otherLeague := testutil.SeedLeague(t, f.store, "Harbor League")
	otherFacility := testutil.SeedFacility(t, f.store, otherLeague, "Court Z")
	start, end := window(10)

	params := f.createParams(start, end)
	params.IdempotencyKey = "shared-key"
	if _, err := f.engine.Create(context.Background(), params); err != nil {
		t.Fatalf("first create: %v", err)
	}

	// The same key in a different league is a fresh create.
	other := CreateParams{
		LeagueID:       otherLeague,
		FacilityID:     otherFacility,
		UserID:         f.userID,
		StartAt:        start,
		EndAt:          end,
		IdempotencyKey: "shared-key",
	}
	result, err := f.engine.Create(context.Background(), other)
	if err != nil {
		t.Fatalf("create in other league: %v", err)
	}
	if result.Replay {
		t.Error("cross-league create reported as replay")
	}
}

func TestCancelFreesWindow(t *testing.T) {
	f := newEngineFixture(t)
	start, end := window(10)

	first, err := f.engine.Create(context.Background(), f.createParams(start, end))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cancelled, err := f.engine.Cancel(context.Background(), CancelParams{
		LeagueID:  f.leagueID,
		BookingID: first.Booking.ID,
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != db.BookingStatusCancelled {
		t.Errorf("status = %q, want %q", cancelled.Status, db.BookingStatusCancelled)
	}

	// The exact window is bookable again.
	second, err := f.engine.Create(context.Background(), f.createParams(start, end))
	if err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
	if second.Booking.ID == first.Booking.ID {
		t.Error("rebooking reused the cancelled row")
	}
}

func TestCancelRequiresConfirmed(t *testing.T) {
	f := newEngineFixture(t)
	start, end := window(10)

	created, err := f.engine.Create(context.Background(), f.createParams(start, end))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.engine.Cancel(context.Background(), CancelParams{LeagueID: f.leagueID, BookingID: created.Booking.ID}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err = f.engine.Cancel(context.Background(), CancelParams{LeagueID: f.leagueID, BookingID: created.Booking.ID})
	if !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("second cancel err = %v, want ErrNotConfirmed", err)
	}

	_, err = f.engine.Cancel(context.Background(), CancelParams{LeagueID: f.leagueID, BookingID: 9999})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing booking err = %v, want ErrNotFound", err)
	}
}

func TestCheckInCompletesBooking(t *testing.T) {
	f := newEngineFixture(t)
	start, end := window(10)

	created, err := f.engine.Create(context.Background(), f.createParams(start, end))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.engine.CheckIn(context.Background(), CheckInParams{
		LeagueID:  f.leagueID,
		BookingID: created.Booking.ID,
		Code:      "wrong-code",
	})
	if !errors.Is(err, ErrCodeMismatch) {
		t.Fatalf("wrong code err = %v, want ErrCodeMismatch", err)
	}

	completed, err := f.engine.CheckIn(context.Background(), CheckInParams{
		LeagueID:  f.leagueID,
		BookingID: created.Booking.ID,
		Code:      created.Booking.QRCode,
	})
	if err != nil {
		t.Fatalf("check-in: %v", err)
	}
	if completed.Status != db.BookingStatusCompleted {
		t.Errorf("status = %q, want %q", completed.Status, db.BookingStatusCompleted)
	}
}

func TestExpireNoShows(t *testing.T) {
	f := newEngineFixture(t)
	start, end := window(10)

	past, err := f.engine.Create(context.Background(), f.createParams(start, end))
	if err != nil {
		t.Fatalf("create past: %v", err)
	}
	futureStart, futureEnd := window(15)
	future, err := f.engine.Create(context.Background(), f.createParams(futureStart, futureEnd))
	if err != nil {
		t.Fatalf("create future: %v", err)
	}

	marked, err := f.engine.ExpireNoShows(context.Background(), end.Add(time.Hour))
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if marked != 1 {
		t.Errorf("marked = %d, want 1", marked)
	}

	got, err := f.store.Queries.GetBookingByID(context.Background(), past.Booking.ID)
	if err != nil {
		t.Fatalf("get past: %v", err)
	}
	if got.Status != db.BookingStatusNoShow {
		t.Errorf("past status = %q, want %q", got.Status, db.BookingStatusNoShow)
	}
	got, err = f.store.Queries.GetBookingByID(context.Background(), future.Booking.ID)
	if err != nil {
		t.Fatalf("get future: %v", err)
	}
	if got.Status != db.BookingStatusConfirmed {
		t.Errorf("future status = %q, want %q", got.Status, db.BookingStatusConfirmed)
	}
}

func TestConcurrentCreatesSameWindow(t *testing.T) {
	f := newEngineFixture(t)
	start, end := window(10)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.Create(context.Background(), f.createParams(start, end))
		}(i)
	}
	wg.Wait()

	var confirmed, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			confirmed++
		case errors.Is(err, ErrSlotConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if confirmed != 1 {
		t.Errorf("confirmed = %d, want exactly 1", confirmed)
	}
	if conflicts != workers-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, workers-1)
	}

	overlaps, err := f.store.Queries.CountConfirmedOverlaps(context.Background(), db.CountConfirmedOverlapsParams{
		FacilityID: f.facilityID,
		StartAt:    start,
		EndAt:      end,
	})
	if err != nil {
		t.Fatalf("count overlaps: %v", err)
	}
	if overlaps != 1 {
		t.Errorf("confirmed rows in window = %d, want 1", overlaps)
	}
}

func TestConcurrentCreatesSameIdempotencyKey(t *testing.T) {
	f := newEngineFixture(t)
	start, end := window(10)

	params := f.createParams(start, end)
	params.IdempotencyKey = "race-key"

	const workers = 8
	var wg sync.WaitGroup
	results := make([]CreateResult, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.engine.Create(context.Background(), params)
		}(i)
	}
	wg.Wait()

	var creates, replays int
	var bookingID int64
	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d: %v", i, err)
		}
		if bookingID == 0 {
			bookingID = results[i].Booking.ID
		} else if results[i].Booking.ID != bookingID {
			t.Errorf("worker %d returned booking %d, want %d", i, results[i].Booking.ID, bookingID)
		}
		if results[i].Replay {
			replays++
		} else {
			creates++
		}
	}
	if creates != 1 {
		t.Errorf("creates = %d, want exactly 1", creates)
	}
	if replays != workers-1 {
		t.Errorf("replays = %d, want %d", replays, workers-1)
	}
}
