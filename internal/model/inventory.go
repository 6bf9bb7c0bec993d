package model

// InventoryItem is a read-only inventory snapshot entry.  Available is
// the quantity not currently borrowed or assigned and is assumed to be
// non-negative.
//
// Fields:
//  Num           – inventory number used as the item id on assignment.
//  EquipmentName – display name, also the sort key for candidates.
//  Available     – units free to assign.
//  IsConsumable  – pool the item belongs to.
//  Identifiers   – optional serial or asset tags.
type InventoryItem struct {
    Num           string   `json:"num"`
    EquipmentName string   `json:"equipment_name"`
    Available     int      `json:"available"`
    IsConsumable  bool     `json:"is_consumable"`
    Identifiers   []string `json:"identifiers,omitempty"`
}

// ItemType returns the requested-line type that may draw from this item.
func (i InventoryItem) ItemType() ItemType {
    if i.IsConsumable {
        return ItemConsumable
    }
    return ItemNonConsumable
}
