package model

// Domain names a domain store in the store tree.
type Domain string

const (
	DomainActivity   Domain = "activity"
	DomainStock      Domain = "stock"
	DomainFumigation Domain = "fumigation"
	DomainTransfer   Domain = "transfer"
	DomainHarvest    Domain = "harvest"
	DomainExpense    Domain = "expense"
	DomainUsers      Domain = "users"
)
