package tonapi

import (
	"github.com/tonkeeper/tongo/ton"
)

// AddressCodec implements staking.AddressCodec for TON accounts. The
// canonical form is raw (0:<hex>); the human form is bounceable and URL-safe.
type AddressCodec struct {
	Testnet bool
}

func (c AddressCodec) Canonicalize(addr string) (string, error) {
	acc, err := ton.ParseAccountID(addr)
	if err != nil {
		return "", err
	}
	return acc.ToRaw(), nil
}

func (c AddressCodec) Humanize(addr string) (string, error) {
	acc, err := ton.ParseAccountID(addr)
	if err != nil {
		return "", err
	}
	return acc.ToHuman(true, c.Testnet), nil
}
