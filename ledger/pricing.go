package ledger

import (
	"fmt"

	"github.com/udemarket/markethub/common"
)

// TotalPrice computes the settlement price for a listing: the listed price
// plus the platform fee, truncated to whole minor units. Every call site
// (catalog display, settlement check) goes through this function so the
// price shown is always the price charged.
func TotalPrice(listedPrice int64, feeBasisPoints int64) (int64, error) {
	if listedPrice <= 0 {
		return 0, fmt.Errorf("%w: listed price must be positive, got %d", common.ErrInvalidArgument, listedPrice)
	}
	if feeBasisPoints < 0 {
		return 0, fmt.Errorf("%w: fee basis points must not be negative, got %d", common.ErrInvalidArgument, feeBasisPoints)
	}
	return listedPrice + listedPrice*feeBasisPoints/common.FeeBasisPointDivisor, nil
}

// Fee returns only the platform fee portion of the settlement price.
func Fee(listedPrice int64, feeBasisPoints int64) (int64, error) {
	total, err := TotalPrice(listedPrice, feeBasisPoints)
	if err != nil {
		return 0, err
	}
	return total - listedPrice, nil
}
