package domain

import "fmt"

// Ability - уровень доступа к ресурсу. Уровни строго упорядочены:
// каждый следующий включает предыдущие.
type Ability int16

const (
	AbilityView    Ability = 1
	AbilityComment Ability = 2
	AbilityEdit    Ability = 3
)

// ParseAbility проверяет числовое значение уровня с внешней границы.
func ParseAbility(v int16) (Ability, error) {
	a := Ability(v)
	if !a.Valid() {
		return 0, fmt.Errorf("ability %d out of range: %w", v, ErrInvalidOperation)
	}
	return a, nil
}

func (a Ability) Valid() bool {
	return a >= AbilityView && a <= AbilityEdit
}

// Allows сообщает, покрывает ли уровень требуемый минимум.
func (a Ability) Allows(min Ability) bool {
	return a >= min
}

func (a Ability) String() string {
	switch a {
	case AbilityView:
		return "VIEW"
	case AbilityComment:
		return "COMMENT"
	case AbilityEdit:
		return "EDIT"
	default:
		return fmt.Sprintf("Ability(%d)", int16(a))
	}
}

// MaxAbility возвращает максимальный уровень из набора, nil для пустого
// набора.
func MaxAbility(abilities []Ability) *Ability {
	if len(abilities) == 0 {
		return nil
	}
	max := abilities[0]
	for _, a := range abilities[1:] {
		if a > max {
			max = a
		}
	}
	return &max
}
