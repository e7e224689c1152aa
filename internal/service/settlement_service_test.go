package service

import (
	"errors"
	"math"
	"testing"
	"time"

	"messmate/internal/domain"
	"messmate/internal/models"

	"gorm.io/gorm"
)

type fakeRoomStore struct {
	rooms   map[uint]*models.Room
	members map[uint][]models.RoomMember
}

func (f *fakeRoomStore) GetByID(id uint) (*models.Room, error) {
	r, ok := f.rooms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r, nil
}

func (f *fakeRoomStore) Members(roomID uint) ([]models.RoomMember, error) {
	return f.members[roomID], nil
}

func (f *fakeRoomStore) IsMember(userID, roomID uint) (bool, error) {
	for _, m := range f.members[roomID] {
		if m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

type fakeMealStore struct {
	meals  map[uint]int64
	guests map[uint]int64
}

func (f *fakeMealStore) CountByRoom(roomID uint, start, end time.Time) (int64, error) {
	var total int64
	for _, n := range f.meals {
		total += n
	}
	return total, nil
}

func (f *fakeMealStore) CountByUser(userID, roomID uint, start, end time.Time) (int64, error) {
	return f.meals[userID], nil
}

func (f *fakeMealStore) SumGuestMealsByRoom(roomID uint, start, end time.Time) (int64, error) {
	var total int64
	for _, n := range f.guests {
		total += n
	}
	return total, nil
}

func (f *fakeMealStore) SumGuestMealsByUser(userID, roomID uint, start, end time.Time) (int64, error) {
	return f.guests[userID], nil
}

type fakeExpenseStore struct {
	shopping float64
	extra    float64
}

func (f *fakeExpenseStore) SumExpenses(roomID uint, start, end time.Time) (float64, error) {
	return f.extra, nil
}

func (f *fakeExpenseStore) SumShoppingItems(roomID uint, start, end time.Time) (float64, error) {
	return f.shopping, nil
}

type fakeLedger struct {
	paid map[uint]float64
}

func (f *fakeLedger) SumCompletedByUser(userID, roomID uint, start, end time.Time) (float64, error) {
	return f.paid[userID], nil
}

func twoMemberRoom() *fakeRoomStore {
	return &fakeRoomStore{
		rooms: map[uint]*models.Room{1: {ID: 1, Name: "Flat 4B"}},
		members: map[uint][]models.RoomMember{
			1: {
				{UserID: 10, RoomID: 1, User: models.User{ID: 10, Name: "Arif"}},
				{UserID: 20, RoomID: 1, User: models.User{ID: 20, Name: "Sumi"}},
			},
		},
	}
}

func monthRange(t *testing.T) (time.Time, time.Time) {
	t.Helper()
	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

func TestComputeRoomSummaryBasicSplit(t *testing.T) {
	svc := NewSettlementService(
		twoMemberRoom(),
		&fakeMealStore{meals: map[uint]int64{10: 6, 20: 4}, guests: map[uint]int64{}},
		&fakeExpenseStore{shopping: 800, extra: 200},
		&fakeLedger{paid: map[uint]float64{10: 700, 20: 300}},
	)
	start, end := monthRange(t)

	got, err := svc.ComputeRoomSummary(1, start, end)
	if err != nil {
		t.Fatalf("ComputeRoomSummary: %v", err)
	}
	if got.TotalMeals != 10 {
		t.Errorf("TotalMeals = %d, want 10", got.TotalMeals)
	}
	if got.TotalCost != 1000 {
		t.Errorf("TotalCost = %v, want 1000", got.TotalCost)
	}
	if got.MealRate != 100 {
		t.Errorf("MealRate = %v, want 100", got.MealRate)
	}
	want := map[uint]UserMealSummary{
		10: {UserID: 10, MealCount: 6, Cost: 600, Paid: 700, Balance: 100},
		20: {UserID: 20, MealCount: 4, Cost: 400, Paid: 300, Balance: -100},
	}
	for _, u := range got.UserSummaries {
		w := want[u.UserID]
		if u.MealCount != w.MealCount || u.Cost != w.Cost || u.Paid != w.Paid || u.Balance != w.Balance {
			t.Errorf("user %d = %+v, want %+v", u.UserID, u, w)
		}
	}
}

func TestComputeRoomSummaryGuestMealsInflateCount(t *testing.T) {
	svc := NewSettlementService(
		twoMemberRoom(),
		&fakeMealStore{meals: map[uint]int64{10: 6, 20: 4}, guests: map[uint]int64{10: 2}},
		&fakeExpenseStore{shopping: 1000},
		&fakeLedger{paid: map[uint]float64{}},
	)
	start, end := monthRange(t)

	got, err := svc.ComputeRoomSummary(1, start, end)
	if err != nil {
		t.Fatalf("ComputeRoomSummary: %v", err)
	}
	if got.TotalMeals != 12 {
		t.Errorf("TotalMeals = %d, want 12", got.TotalMeals)
	}
	if math.Abs(got.MealRate-1000.0/12.0) > 1e-9 {
		t.Errorf("MealRate = %v, want %v", got.MealRate, 1000.0/12.0)
	}
	for _, u := range got.UserSummaries {
		switch u.UserID {
		case 10:
			if u.MealCount != 8 {
				t.Errorf("host MealCount = %d, want 8 (own plus guests)", u.MealCount)
			}
			if u.Cost != 666.67 {
				t.Errorf("host Cost = %v, want 666.67", u.Cost)
			}
		case 20:
			if u.MealCount != 4 {
				t.Errorf("other MealCount = %d, want 4", u.MealCount)
			}
			if u.Cost != 333.33 {
				t.Errorf("other Cost = %v, want 333.33", u.Cost)
			}
		}
	}
}

func TestComputeRoomSummaryZeroMeals(t *testing.T) {
	svc := NewSettlementService(
		twoMemberRoom(),
		&fakeMealStore{meals: map[uint]int64{}, guests: map[uint]int64{}},
		&fakeExpenseStore{shopping: 500},
		&fakeLedger{paid: map[uint]float64{}},
	)
	start, end := monthRange(t)

	got, err := svc.ComputeRoomSummary(1, start, end)
	if err != nil {
		t.Fatalf("ComputeRoomSummary: %v", err)
	}
	if got.MealRate != 0 {
		t.Errorf("MealRate = %v, want 0 when no meals recorded", got.MealRate)
	}
	if got.TotalCost != 500 {
		t.Errorf("TotalCost = %v, want 500", got.TotalCost)
	}
	for _, u := range got.UserSummaries {
		if u.Cost != 0 {
			t.Errorf("user %d Cost = %v, want 0", u.UserID, u.Cost)
		}
	}
}

func TestComputeRoomSummaryConservation(t *testing.T) {
	// awkward rate: 100 / 3 meals
	svc := NewSettlementService(
		twoMemberRoom(),
		&fakeMealStore{meals: map[uint]int64{10: 2, 20: 1}, guests: map[uint]int64{}},
		&fakeExpenseStore{shopping: 100},
		&fakeLedger{paid: map[uint]float64{}},
	)
	start, end := monthRange(t)

	got, err := svc.ComputeRoomSummary(1, start, end)
	if err != nil {
		t.Fatalf("ComputeRoomSummary: %v", err)
	}
	var sumMeals int64
	var sumCost float64
	for _, u := range got.UserSummaries {
		sumMeals += u.MealCount
		sumCost += u.Cost
	}
	if sumMeals != got.TotalMeals {
		t.Errorf("sum of member meal counts = %d, want %d", sumMeals, got.TotalMeals)
	}
	tolerance := float64(len(got.UserSummaries)) * 0.005
	if math.Abs(sumCost-got.TotalCost) > tolerance {
		t.Errorf("sum of member costs = %v, differs from TotalCost %v by more than %v", sumCost, got.TotalCost, tolerance)
	}
}

func TestComputeUserSummaryMatchesRoomEntry(t *testing.T) {
	rooms := twoMemberRoom()
	meals := &fakeMealStore{meals: map[uint]int64{10: 7, 20: 5}, guests: map[uint]int64{20: 3}}
	expenses := &fakeExpenseStore{shopping: 1234.56, extra: 78.9}
	ledger := &fakeLedger{paid: map[uint]float64{10: 500}}
	svc := NewSettlementService(rooms, meals, expenses, ledger)
	start, end := monthRange(t)

	room, err := svc.ComputeRoomSummary(1, start, end)
	if err != nil {
		t.Fatalf("ComputeRoomSummary: %v", err)
	}
	for _, want := range room.UserSummaries {
		got, err := svc.ComputeUserSummary(want.UserID, 1, start, end)
		if err != nil {
			t.Fatalf("ComputeUserSummary(%d): %v", want.UserID, err)
		}
		if got.MealCount != want.MealCount || got.Cost != want.Cost || got.Paid != want.Paid || got.Balance != want.Balance {
			t.Errorf("user %d summary = %+v, want room entry %+v", want.UserID, got.UserMealSummary, want)
		}
		if got.MealRate != room.MealRate || got.TotalMeals != room.TotalMeals || got.TotalCost != room.TotalCost {
			t.Errorf("user %d aggregates disagree with room summary", want.UserID)
		}
	}
}

func TestComputeRoomSummaryInvalidRange(t *testing.T) {
	svc := NewSettlementService(twoMemberRoom(), &fakeMealStore{}, &fakeExpenseStore{}, &fakeLedger{})
	start, end := monthRange(t)

	if _, err := svc.ComputeRoomSummary(1, end, start); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("end before start: err = %v, want ErrValidation", err)
	}
}

func TestComputeRoomSummaryRoomMissing(t *testing.T) {
	svc := NewSettlementService(twoMemberRoom(), &fakeMealStore{}, &fakeExpenseStore{}, &fakeLedger{})
	start, end := monthRange(t)

	if _, err := svc.ComputeRoomSummary(99, start, end); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing room: err = %v, want ErrNotFound", err)
	}
}

func TestComputeUserSummaryNonMember(t *testing.T) {
	svc := NewSettlementService(twoMemberRoom(), &fakeMealStore{}, &fakeExpenseStore{}, &fakeLedger{})
	start, end := monthRange(t)

	if _, err := svc.ComputeUserSummary(77, 1, start, end); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("non-member: err = %v, want ErrNotFound", err)
	}
}

func TestCurrentMonthRange(t *testing.T) {
	now := time.Date(2025, time.February, 14, 18, 30, 0, 0, time.UTC)
	start, end := CurrentMonthRange(now)
	if !start.Equal(time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	if !end.Equal(time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}
}
