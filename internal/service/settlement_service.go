package service

import (
	"errors"
	"fmt"
	"math"
	"time"

	"messmate/internal/domain"
	"messmate/internal/models"

	"gorm.io/gorm"
)

// Store interfaces for the settlement computation, satisfied by the gorm
// repositories and by in-memory fakes in tests.
type RoomStore interface {
	GetByID(id uint) (*models.Room, error)
	Members(roomID uint) ([]models.RoomMember, error)
	IsMember(userID, roomID uint) (bool, error)
}

type MealStore interface {
	CountByRoom(roomID uint, start, end time.Time) (int64, error)
	CountByUser(userID, roomID uint, start, end time.Time) (int64, error)
	SumGuestMealsByRoom(roomID uint, start, end time.Time) (int64, error)
	SumGuestMealsByUser(userID, roomID uint, start, end time.Time) (int64, error)
}

type ExpenseStore interface {
	SumExpenses(roomID uint, start, end time.Time) (float64, error)
	SumShoppingItems(roomID uint, start, end time.Time) (float64, error)
}

type PaymentLedger interface {
	SumCompletedByUser(userID, roomID uint, start, end time.Time) (float64, error)
}

type UserMealSummary struct {
	UserID    uint    `json:"user_id"`
	UserName  string  `json:"user_name"`
	UserImage string  `json:"user_image,omitempty"`
	MealCount int64   `json:"meal_count"`
	Cost      float64 `json:"cost"`
	Paid      float64 `json:"paid"`
	Balance   float64 `json:"balance"`
}

type RoomMealSummary struct {
	RoomID        uint              `json:"room_id"`
	StartDate     time.Time         `json:"start_date"`
	EndDate       time.Time         `json:"end_date"`
	TotalMeals    int64             `json:"total_meals"`
	TotalCost     float64           `json:"total_cost"`
	MealRate      float64           `json:"meal_rate"`
	UserSummaries []UserMealSummary `json:"user_summaries"`
}

// UserSummary is the single-member view: room aggregates plus that member's
// figures, identical to the matching entry of the room summary.
type UserSummary struct {
	RoomID     uint      `json:"room_id"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	TotalMeals int64     `json:"total_meals"`
	TotalCost  float64   `json:"total_cost"`
	MealRate   float64   `json:"meal_rate"`
	UserMealSummary
}

// SettlementService turns a room's recorded meals and shared expenses over a
// period into a meal rate and per-member cost, paid and balance figures. It
// performs reads only; summaries are recomputed fresh on every call.
type SettlementService struct {
	rooms    RoomStore
	meals    MealStore
	expenses ExpenseStore
	payments PaymentLedger
}

func NewSettlementService(rooms RoomStore, meals MealStore, expenses ExpenseStore, payments PaymentLedger) *SettlementService {
	return &SettlementService{rooms: rooms, meals: meals, expenses: expenses, payments: payments}
}

// ComputeRoomSummary computes the settlement for every member of the room over
// the inclusive date range.
func (s *SettlementService) ComputeRoomSummary(roomID uint, start, end time.Time) (*RoomMealSummary, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date before start date", domain.ErrValidation)
	}
	if _, err := s.rooms.GetByID(roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: room %d", domain.ErrNotFound, roomID)
		}
		return nil, err
	}

	totalMeals, totalCost, mealRate, err := s.roomAggregates(roomID, start, end)
	if err != nil {
		return nil, err
	}

	members, err := s.rooms.Members(roomID)
	if err != nil {
		return nil, err
	}
	summaries := make([]UserMealSummary, 0, len(members))
	for _, m := range members {
		entry, err := s.memberSummary(m.UserID, roomID, mealRate, start, end)
		if err != nil {
			return nil, err
		}
		entry.UserName = m.User.Name
		entry.UserImage = m.User.Image
		summaries = append(summaries, *entry)
	}

	return &RoomMealSummary{
		RoomID:        roomID,
		StartDate:     start,
		EndDate:       end,
		TotalMeals:    totalMeals,
		TotalCost:     totalCost,
		MealRate:      mealRate,
		UserSummaries: summaries,
	}, nil
}

// ComputeUserSummary computes the settlement for one member. The result agrees
// exactly with the matching entry of ComputeRoomSummary for the same inputs.
func (s *SettlementService) ComputeUserSummary(userID, roomID uint, start, end time.Time) (*UserSummary, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date before start date", domain.ErrValidation)
	}
	member, err := s.rooms.IsMember(userID, roomID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("%w: user %d in room %d", domain.ErrNotFound, userID, roomID)
	}

	totalMeals, totalCost, mealRate, err := s.roomAggregates(roomID, start, end)
	if err != nil {
		return nil, err
	}
	entry, err := s.memberSummary(userID, roomID, mealRate, start, end)
	if err != nil {
		return nil, err
	}

	return &UserSummary{
		RoomID:          roomID,
		StartDate:       start,
		EndDate:         end,
		TotalMeals:      totalMeals,
		TotalCost:       totalCost,
		MealRate:        mealRate,
		UserMealSummary: *entry,
	}, nil
}

func (s *SettlementService) roomAggregates(roomID uint, start, end time.Time) (totalMeals int64, totalCost, mealRate float64, err error) {
	memberMeals, err := s.meals.CountByRoom(roomID, start, end)
	if err != nil {
		return 0, 0, 0, err
	}
	guestMeals, err := s.meals.SumGuestMealsByRoom(roomID, start, end)
	if err != nil {
		return 0, 0, 0, err
	}
	totalMeals = memberMeals + guestMeals

	shopping, err := s.expenses.SumShoppingItems(roomID, start, end)
	if err != nil {
		return 0, 0, 0, err
	}
	extra, err := s.expenses.SumExpenses(roomID, start, end)
	if err != nil {
		return 0, 0, 0, err
	}
	totalCost = shopping + extra

	if totalMeals > 0 {
		mealRate = totalCost / float64(totalMeals)
	}
	return totalMeals, totalCost, mealRate, nil
}

func (s *SettlementService) memberSummary(userID, roomID uint, mealRate float64, start, end time.Time) (*UserMealSummary, error) {
	own, err := s.meals.CountByUser(userID, roomID, start, end)
	if err != nil {
		return nil, err
	}
	guests, err := s.meals.SumGuestMealsByUser(userID, roomID, start, end)
	if err != nil {
		return nil, err
	}
	count := own + guests
	cost := round2(mealRate * float64(count))
	paid, err := s.payments.SumCompletedByUser(userID, roomID, start, end)
	if err != nil {
		return nil, err
	}
	return &UserMealSummary{
		UserID:    userID,
		MealCount: count,
		Cost:      cost,
		Paid:      paid,
		Balance:   round2(paid - cost),
	}, nil
}

// round2 rounds to 2 decimals, the documented rounding policy for per-member
// cost and balance. The sum of rounded member costs may differ from TotalCost
// by at most members * 0.005.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CurrentMonthRange returns the first and last day of the current month, the
// default settlement window when the caller omits one.
func CurrentMonthRange(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 1, -1)
	return start, end
}
