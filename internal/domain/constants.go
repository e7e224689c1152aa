package domain

const (
	MealBreakfast = "BREAKFAST"
	MealLunch     = "LUNCH"
	MealDinner    = "DINNER"
	MealCustom    = "CUSTOM"
)

// MealTypes are the accepted values for Meal.Type and GuestMeal.Type.
var MealTypes = []string{MealBreakfast, MealLunch, MealDinner, MealCustom}

func ValidMealType(t string) bool {
	for _, m := range MealTypes {
		if t == m {
			return true
		}
	}
	return false
}

const (
	PaymentPending   = "PENDING"
	PaymentCompleted = "COMPLETED"
	PaymentFailed    = "FAILED"
)

const (
	MethodBkash = "BKASH"
	MethodCash  = "CASH"
)

// Gateway attempt states. Payment.Status is the coarser projection:
// CREATED and PENDING_GATEWAY read as PENDING, GATEWAY_COMPLETED as COMPLETED,
// GATEWAY_FAILED as FAILED. GatewayTimeout is reported to callers when the
// poll budget runs out; it never touches the stored Payment.
const (
	GatewayCreated   = "CREATED"
	GatewayPending   = "PENDING_GATEWAY"
	GatewayCompleted = "GATEWAY_COMPLETED"
	GatewayFailed    = "GATEWAY_FAILED"
	GatewayTimeout   = "GATEWAY_TIMEOUT"
)

const (
	RoleMember  = "MEMBER"
	RoleManager = "MANAGER"
)

const (
	ExpenseTypeGrocery = "GROCERY"
	ExpenseTypeUtility = "UTILITY"
	ExpenseTypeOther   = "OTHER"
)

const (
	NotifGuestMealAdded   = "GUEST_MEAL_ADDED"
	NotifExpenseAdded     = "EXPENSE_ADDED"
	NotifPaymentCompleted = "PAYMENT_COMPLETED"
	NotifMarketDate       = "MARKET_DATE_REMINDER"
	NotifCustom           = "CUSTOM"
)

const (
	GuestMealMinCount = 1
	GuestMealMaxCount = 10
)
