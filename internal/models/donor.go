package models

import "time"

// Donor представляет зарегистрированного донора.
type Donor struct {
	ID                    string      `json:"id"`
	BloodGroup            BloodGroup  `json:"bloodGroup"`
	OrganOffered          []OrganType `json:"organOffered"`
	City                  string      `json:"city"`
	Region                string      `json:"region"`
	AvailableForEmergency bool        `json:"availableForEmergency"`
	Active                bool        `json:"active"`
	CreatedAt             time.Time   `json:"createdAt"`
	UpdatedAt             time.Time   `json:"updatedAt"`
}

// DonorRequest представляет структуру запроса для регистрации или обновления донора.
type DonorRequest struct {
	BloodGroup            string   `json:"bloodGroup" validate:"required"`
	OrganOffered          []string `json:"organOffered" validate:"required,min=1,dive,required"`
	City                  string   `json:"city" validate:"required,max=100"`
	Region                string   `json:"region" validate:"max=100"`
	AvailableForEmergency bool     `json:"availableForEmergency"`
	Active                *bool    `json:"active"`
}

// Offers сообщает, предлагает ли донор указанный орган.
func (d *Donor) Offers(organ OrganType) bool {
	for _, o := range d.OrganOffered {
		if o == organ {
			return true
		}
	}
	return false
}

// Validate проверяет доменные поля донора, пришедшего из внешнего хранилища.
func (d *Donor) Validate() error {
	if d.ID == "" {
		return Validationf("donor id is required")
	}
	if !d.BloodGroup.Valid() {
		return Validationf("donor %s: malformed blood group %q", d.ID, d.BloodGroup)
	}
	for _, o := range d.OrganOffered {
		if !o.Valid() {
			return Validationf("donor %s: unknown organ type %q", d.ID, o)
		}
	}
	return nil
}
