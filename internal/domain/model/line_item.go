package model

// カート・注文明細が指す対象の種類
type ItemKind string

const (
	ItemKindProduct ItemKind = "product"
	ItemKindCombo   ItemKind = "combo"
)

func (k ItemKind) Valid() bool {
	return k == ItemKindProduct || k == ItemKindCombo
}
