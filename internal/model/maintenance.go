package model

// MaintenanceItem is one row of the calibration schedule sheet.  Its
// display status is never stored; it is derived from DateAccomplished and
// the viewer's clock.
//
// Fields:
//  Num              – row number in the schedule.
//  EquipmentName    – equipment description.
//  BrandModel       – brand and model, if recorded.
//  SerialNumber     – serial or asset tag, if recorded.
//  Month            – scheduled month as a three letter code (Jan..Dec).
//  DateAccomplished – ISO date of the last calibration, empty when never done.
//  AccomplishedBy   – who performed it, empty when never done.
type MaintenanceItem struct {
    Num              string `json:"num"`
    EquipmentName    string `json:"equipment_name"`
    BrandModel       string `json:"brand_model,omitempty"`
    SerialNumber     string `json:"serial_number,omitempty"`
    Month            string `json:"month"`
    DateAccomplished string `json:"date_accomplished,omitempty"`
    AccomplishedBy   string `json:"accomplished_by,omitempty"`
}

// StaffMember is a row of the staff sheet.
type StaffMember struct {
    Num       string `json:"num"`
    FirstName string `json:"firstname"`
    LastName  string `json:"lastname"`
    Email     string `json:"email"`
    Position  string `json:"position,omitempty"`
}
