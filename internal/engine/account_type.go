package engine

// AccountGroup buckets account types for balance strategy selection and
// reporting.
type AccountGroup string

const (
	GroupAsset     AccountGroup = "ASSET"
	GroupEquity    AccountGroup = "EQUITY"
	GroupExpense   AccountGroup = "EXPENSE"
	GroupIncome    AccountGroup = "INCOME"
	GroupInvest    AccountGroup = "INVEST"
	GroupLiability AccountGroup = "LIABILITY"
	GroupRoot      AccountGroup = "ROOT"
)

// AccountType fixes an account's role at creation time. Only types within
// the same mutable group can be changed afterwards.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeBank      AccountType = "BANK"
	AccountTypeCash      AccountType = "CASH"
	AccountTypeChecking  AccountType = "CHECKING"
	AccountTypeCredit    AccountType = "CREDIT"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeExpense   AccountType = "EXPENSE"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeInvest    AccountType = "INVEST"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeMoneyMkt  AccountType = "MONEYMKT"
	AccountTypeMutual    AccountType = "MUTUAL"
	AccountTypeRoot      AccountType = "ROOT"
)

var accountTypeGroups = map[AccountType]AccountGroup{
	AccountTypeAsset:     GroupAsset,
	AccountTypeBank:      GroupAsset,
	AccountTypeCash:      GroupAsset,
	AccountTypeChecking:  GroupAsset,
	AccountTypeCredit:    GroupLiability,
	AccountTypeEquity:    GroupEquity,
	AccountTypeExpense:   GroupExpense,
	AccountTypeIncome:    GroupIncome,
	AccountTypeInvest:    GroupInvest,
	AccountTypeLiability: GroupLiability,
	AccountTypeMoneyMkt:  GroupAsset,
	AccountTypeMutual:    GroupInvest,
	AccountTypeRoot:      GroupRoot,
}

// Group returns the account group for the type. Unknown types map to the
// asset group so a corrupt persisted value degrades to the simplest strategy.
func (t AccountType) Group() AccountGroup {
	if g, ok := accountTypeGroups[t]; ok {
		return g
	}
	return GroupAsset
}

// Valid reports whether t is one of the defined account types.
func (t AccountType) Valid() bool {
	_, ok := accountTypeGroups[t]
	return ok
}

// Mutable reports whether an account of this type may change type later.
// The root type is fixed for the life of the file.
func (t AccountType) Mutable() bool {
	return t != AccountTypeRoot
}
