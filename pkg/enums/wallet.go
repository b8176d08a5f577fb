package enums

// WalletTransactionType classifies a wallet ledger row.
type WalletTransactionType string

const (
	WalletTxDeposit    WalletTransactionType = "deposit"
	WalletTxWithdraw   WalletTransactionType = "withdraw"
	WalletTxPayment    WalletTransactionType = "payment"
	WalletTxRefund     WalletTransactionType = "refund"
	WalletTxAutoReload WalletTransactionType = "auto_reload"
)

var (
	walletTxTypes = []WalletTransactionType{
		WalletTxDeposit, WalletTxWithdraw, WalletTxPayment, WalletTxRefund, WalletTxAutoReload,
	}
	walletCredits = []WalletTransactionType{WalletTxDeposit, WalletTxRefund, WalletTxAutoReload}
)

func (w WalletTransactionType) String() string { return string(w) }
func (w WalletTransactionType) IsValid() bool  { return known(walletTxTypes, w) }

func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	return parse("wallet transaction type", walletTxTypes, value)
}

// IsCredit reports whether the transaction adds funds to the wallet.
func (w WalletTransactionType) IsCredit() bool { return known(walletCredits, w) }

// WalletTransactionStatus is the settlement state of a wallet ledger row.
type WalletTransactionStatus string

const (
	WalletTxStatusPending   WalletTransactionStatus = "pending"
	WalletTxStatusCompleted WalletTransactionStatus = "completed"
	WalletTxStatusFailed    WalletTransactionStatus = "failed"
	WalletTxStatusCancelled WalletTransactionStatus = "cancelled"
)

var walletTxStatuses = []WalletTransactionStatus{
	WalletTxStatusPending, WalletTxStatusCompleted, WalletTxStatusFailed, WalletTxStatusCancelled,
}

func (w WalletTransactionStatus) String() string { return string(w) }
func (w WalletTransactionStatus) IsValid() bool  { return known(walletTxStatuses, w) }

func ParseWalletTransactionStatus(value string) (WalletTransactionStatus, error) {
	return parse("wallet transaction status", walletTxStatuses, value)
}
