package models

import "strings"

type (
	BloodGroup   string // Группа крови по системе AB0/Rh
	OrganType    string // Тип органа
	UrgencyLevel string // Срочность запроса
)

const (
	BloodOMinus  BloodGroup = "O-"
	BloodOPlus   BloodGroup = "O+"
	BloodAMinus  BloodGroup = "A-"
	BloodAPlus   BloodGroup = "A+"
	BloodBMinus  BloodGroup = "B-"
	BloodBPlus   BloodGroup = "B+"
	BloodABMinus BloodGroup = "AB-"
	BloodABPlus  BloodGroup = "AB+"

	Kidney    OrganType = "kidney"
	Liver     OrganType = "liver"
	Heart     OrganType = "heart"
	Lung      OrganType = "lung"
	Cornea    OrganType = "cornea"
	Pancreas  OrganType = "pancreas"
	Intestine OrganType = "intestine"

	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// BloodGroups перечисляет все восемь групп крови.
var BloodGroups = []BloodGroup{
	BloodOMinus, BloodOPlus,
	BloodAMinus, BloodAPlus,
	BloodBMinus, BloodBPlus,
	BloodABMinus, BloodABPlus,
}

// OrganTypes перечисляет поддерживаемые типы органов.
var OrganTypes = []OrganType{Kidney, Liver, Heart, Lung, Cornea, Pancreas, Intestine}

var urgencyRank = map[UrgencyLevel]int{
	UrgencyLow:      0,
	UrgencyMedium:   1,
	UrgencyHigh:     2,
	UrgencyCritical: 3,
}

// ParseBloodGroup нормализует и проверяет группу крови.
func ParseBloodGroup(s string) (BloodGroup, error) {
	bg := BloodGroup(strings.ToUpper(strings.TrimSpace(s)))
	if !bg.Valid() {
		return "", Validationf("malformed blood group %q", s)
	}
	return bg, nil
}

// Valid сообщает, входит ли группа крови в допустимый набор.
func (b BloodGroup) Valid() bool {
	for _, bg := range BloodGroups {
		if bg == b {
			return true
		}
	}
	return false
}

// ABO возвращает группу без резус-фактора.
func (b BloodGroup) ABO() string {
	return strings.TrimRight(string(b), "+-")
}

// RhPositive сообщает, положителен ли резус-фактор.
func (b BloodGroup) RhPositive() bool {
	return strings.HasSuffix(string(b), "+")
}

// CanDonateTo проверяет совместимость донора и реципиента по эритроцитам.
func (b BloodGroup) CanDonateTo(recipient BloodGroup) bool {
	if !b.Valid() || !recipient.Valid() {
		return false
	}
	// Rh+ донор не подходит Rh- реципиенту
	if b.RhPositive() && !recipient.RhPositive() {
		return false
	}
	switch b.ABO() {
	case "O":
		return true
	case "A":
		return recipient.ABO() == "A" || recipient.ABO() == "AB"
	case "B":
		return recipient.ABO() == "B" || recipient.ABO() == "AB"
	case "AB":
		return recipient.ABO() == "AB"
	}
	return false
}

// ParseOrganType нормализует и проверяет тип органа.
func ParseOrganType(s string) (OrganType, error) {
	ot := OrganType(strings.ToLower(strings.TrimSpace(s)))
	if !ot.Valid() {
		return "", Validationf("unknown organ type %q", s)
	}
	return ot, nil
}

// Valid сообщает, поддерживается ли тип органа.
func (o OrganType) Valid() bool {
	for _, ot := range OrganTypes {
		if ot == o {
			return true
		}
	}
	return false
}

// ParseUrgencyLevel нормализует срочность, пустая строка даёт medium.
func ParseUrgencyLevel(s string) (UrgencyLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return UrgencyMedium, nil
	}
	u := UrgencyLevel(s)
	if !u.Valid() {
		return "", Validationf("unknown urgency level %q", s)
	}
	return u, nil
}

// Valid сообщает, допустим ли уровень срочности.
func (u UrgencyLevel) Valid() bool {
	_, ok := urgencyRank[u]
	return ok
}

// Rank возвращает порядок срочности: чем больше, тем срочнее.
func (u UrgencyLevel) Rank() int {
	return urgencyRank[u]
}
