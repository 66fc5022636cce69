package payment

// Pack is a purchasable credit bundle. Amounts are USD cents.
type Pack struct {
	Id          string
	Name        string
	Credits     int
	AmountCents int64
}

var Packs = []Pack{
	{Id: "pack_50", Name: "50 Credits", Credits: 50, AmountCents: 500},
	{Id: "pack_125", Name: "125 Credits", Credits: 125, AmountCents: 1000},
	{Id: "pack_300", Name: "300 Credits", Credits: 300, AmountCents: 2000},
	{Id: "pack_700", Name: "700 Credits", Credits: 700, AmountCents: 4000},
}

func PackById(id string) (*Pack, bool) {
	for i := range Packs {
		if Packs[i].Id == id {
			return &Packs[i], true
		}
	}
	return nil, false
}
