package domain

// GenesisKitty is a kitty loaded at startup with an explicit genome and gender.
type GenesisKitty struct {
	Owner  Account
	Dna    Dna
	Gender Gender
}

type GenesisBalance struct {
	Account Account
	Amount  Amount
}

type Genesis struct {
	Balances []GenesisBalance
	Kitties  []GenesisKitty
}
