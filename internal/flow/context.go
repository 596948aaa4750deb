package flow

// Context keys written by state callbacks and read by action builders and
// prompt placeholders. The context is an open bag, but these are the keys the
// state table itself produces.
const (
	ctxCompanyName    = "companyName"
	ctxLegalID        = "legalId"
	ctxRestaurantName = "restaurantName"
	ctxContactName    = "contactName"
	ctxContactEmail   = "contactEmail"
	ctxPaymentMethod  = "paymentMethod"
	ctxPaymentStatus  = "paymentStatus"
	ctxRestaurantID   = "restaurantId"

	ctxSupplier     = "supplier"
	ctxSuppliers    = "suppliers"
	ctxLastSupplier = "lastSupplier"

	ctxProductQueue   = "productQueue"
	ctxCurrentProduct = "currentProduct"

	ctxInventoryCategory = "inventoryCategory"
	ctxInventoryItems    = "inventoryItems"
	ctxInventorySummary  = "inventorySummary"
	ctxShortageSummary   = "shortageSummary"

	ctxOrder             = "order"
	ctxOrderCounter      = "orderCounter"
	ctxOrderSummary      = "orderSummary"
	ctxOrderSupplierName = "orderSupplierName"
	ctxOrderID           = "orderId"
	ctxSupplierMenu      = "supplierMenu"

	ctxDeliveryQueue       = "deliveryQueue"
	ctxDeliveryItems       = "deliveryItems"
	ctxCurrentDeliveryItem = "currentDeliveryItem"
	ctxOrderedQty          = "orderedQty"
	ctxInvoiceURL          = "invoiceUrl"
	ctxShortageReport      = "shortageReport"
)
