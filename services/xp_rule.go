package services

import "context"

// FixedXPRule awards the same amount for every task.
type FixedXPRule int64

func (r FixedXPRule) XPFor(context.Context, string, string) (int64, error) {
	return int64(r), nil
}
