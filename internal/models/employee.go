package models

// Employee is a known portal identity, keyed by the bank-issued employee
// number (e.g. "WB001"). Provisioning is out of band; the auth core only
// reads these rows.
type Employee struct {
	BaseModel
	EmployeeID   string `json:"employeeId" gorm:"type:varchar(20);uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"type:text;not null"`
	Name         string `json:"name" gorm:"type:varchar(100);not null"`
	Role         string `json:"role" gorm:"type:varchar(50);not null"`
	Phone        string `json:"-" gorm:"type:varchar(30)"`
	IsActive     bool   `json:"isActive" gorm:"not null"`
}

func (Employee) TableName() string {
	return "employees"
}
