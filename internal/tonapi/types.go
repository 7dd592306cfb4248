package tonapi

// NftItem represents a TonAPI NFT item
type NftItem struct {
	Address    string                 `json:"address"` // raw format
	Index      int64                  `json:"index"`
	Owner      *Account               `json:"owner,omitempty"`
	Collection *NftCollectionRef      `json:"collection,omitempty"`
	Verified   bool                   `json:"verified"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Name returns the item name from its metadata, if any
func (i *NftItem) Name() string {
	if name, ok := i.Metadata["name"].(string); ok {
		return name
	}
	return ""
}

// NftCollectionRef is the collection an item belongs to
type NftCollectionRef struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// Account represents an account/wallet
type Account struct {
	Address  string `json:"address"`
	Name     string `json:"name,omitempty"`
	IsScam   bool   `json:"is_scam,omitempty"`
	IsWallet bool   `json:"is_wallet,omitempty"`
}
