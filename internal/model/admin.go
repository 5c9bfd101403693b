package model

// AdminLevel is the character's admin tier. Wire format is the numeric value.
type AdminLevel int

const (
	AdminPlayer AdminLevel = iota
	AdminSpy
	AdminLightGuide
	AdminGuardian
	AdminGameMaster
	AdminHighGameMaster
)

func (a AdminLevel) String() string {
	switch a {
	case AdminPlayer:
		return "Player"
	case AdminSpy:
		return "Spy"
	case AdminLightGuide:
		return "LightGuide"
	case AdminGuardian:
		return "Guardian"
	case AdminGameMaster:
		return "GameMaster"
	case AdminHighGameMaster:
		return "HighGameMaster"
	}
	return "Unknown"
}
