// Package models defines the core data structures for OrderFlow.
package models

// StateType identifies a single state in the conversation state machine.
type StateType string

// Conversation states, grouped by phase. The set is closed: any value outside
// it is treated as a corrupted session and recovered via reset to StateIdle.
const (
	StateInit StateType = "INIT"

	// Onboarding phase.
	StateOnboardingCompanyName    StateType = "ONBOARDING_COMPANY_NAME"
	StateOnboardingLegalID        StateType = "ONBOARDING_LEGAL_ID"
	StateOnboardingRestaurantName StateType = "ONBOARDING_RESTAURANT_NAME"
	StateOnboardingContactName    StateType = "ONBOARDING_CONTACT_NAME"
	StateOnboardingContactEmail   StateType = "ONBOARDING_CONTACT_EMAIL"
	StateOnboardingPaymentMethod  StateType = "ONBOARDING_PAYMENT_METHOD"
	StateWaitingForPayment        StateType = "WAITING_FOR_PAYMENT"

	// Supplier setup phase.
	StateSetupSuppliersStart    StateType = "SETUP_SUPPLIERS_START"
	StateSupplierCategory       StateType = "SUPPLIER_CATEGORY"
	StateSupplierContact        StateType = "SUPPLIER_CONTACT"
	StateSupplierDeliveryDays   StateType = "SUPPLIER_DELIVERY_DAYS"
	StateSupplierCutoffTime     StateType = "SUPPLIER_CUTOFF_TIME"
	StateSupplierProductList    StateType = "SUPPLIER_PRODUCT_LIST"
	StateSupplierProductBaseQty StateType = "SUPPLIER_PRODUCT_BASE_QTY"
	StateSupplierSetupMore      StateType = "SUPPLIER_SETUP_MORE"

	// Idle menu.
	StateIdle StateType = "IDLE"
	StateHelp StateType = "HELP"

	// Inventory snapshot phase.
	StateInventoryStart        StateType = "INVENTORY_START"
	StateInventoryCategory     StateType = "INVENTORY_CATEGORY"
	StateInventoryCountProduct StateType = "INVENTORY_COUNT_PRODUCT"
	StateInventoryConfirm      StateType = "INVENTORY_CONFIRM"
	StateInventoryCalculate    StateType = "INVENTORY_CALCULATE"

	// Order phase.
	StateOrderStart   StateType = "ORDER_START"
	StateOrderBuild   StateType = "ORDER_BUILD"
	StateOrderConfirm StateType = "ORDER_CONFIRM"
	StateOrderSent    StateType = "ORDER_SENT"

	// Delivery reconciliation phase.
	StateDeliveryStart          StateType = "DELIVERY_START"
	StateDeliveryCheckItem      StateType = "DELIVERY_CHECK_ITEM"
	StateDeliveryShortageAmount StateType = "DELIVERY_SHORTAGE_AMOUNT"
	StateDeliveryInvoicePhoto   StateType = "DELIVERY_INVOICE_PHOTO"
	StateDeliveryDone           StateType = "DELIVERY_DONE"

	StateResetConfirm StateType = "RESET_CONFIRM"
)

// AllStates lists every member of the closed state set in traversal order.
var AllStates = []StateType{
	StateInit,
	StateOnboardingCompanyName,
	StateOnboardingLegalID,
	StateOnboardingRestaurantName,
	StateOnboardingContactName,
	StateOnboardingContactEmail,
	StateOnboardingPaymentMethod,
	StateWaitingForPayment,
	StateSetupSuppliersStart,
	StateSupplierCategory,
	StateSupplierContact,
	StateSupplierDeliveryDays,
	StateSupplierCutoffTime,
	StateSupplierProductList,
	StateSupplierProductBaseQty,
	StateSupplierSetupMore,
	StateIdle,
	StateHelp,
	StateInventoryStart,
	StateInventoryCategory,
	StateInventoryCountProduct,
	StateInventoryConfirm,
	StateInventoryCalculate,
	StateOrderStart,
	StateOrderBuild,
	StateOrderConfirm,
	StateOrderSent,
	StateDeliveryStart,
	StateDeliveryCheckItem,
	StateDeliveryShortageAmount,
	StateDeliveryInvoicePhoto,
	StateDeliveryDone,
	StateResetConfirm,
}

var validStates = func() map[StateType]struct{} {
	m := make(map[StateType]struct{}, len(AllStates))
	for _, s := range AllStates {
		m[s] = struct{}{}
	}
	return m
}()

// IsValidState reports whether s is a member of the closed state set.
func IsValidState(s StateType) bool {
	_, ok := validStates[s]
	return ok
}
