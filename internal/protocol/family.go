package protocol

// PacketFamily is the second header byte of every payload.
type PacketFamily byte

const (
	FamilyConnection    PacketFamily = 1
	FamilyAccount       PacketFamily = 2
	FamilyCharacter     PacketFamily = 3
	FamilyLogin         PacketFamily = 4
	FamilyWelcome       PacketFamily = 5
	FamilyWalk          PacketFamily = 6
	FamilyFace          PacketFamily = 7
	FamilyChair         PacketFamily = 8
	FamilyEmote         PacketFamily = 9
	FamilyAttack        PacketFamily = 11
	FamilySpell         PacketFamily = 12
	FamilyShop          PacketFamily = 13
	FamilyItem          PacketFamily = 14
	FamilyStatSkill     PacketFamily = 16
	FamilyGlobal        PacketFamily = 17
	FamilyTalk          PacketFamily = 18
	FamilyWarp          PacketFamily = 19
	FamilyAppear        PacketFamily = 20
	FamilyJukebox       PacketFamily = 21
	FamilyPlayers       PacketFamily = 22
	FamilyAvatar        PacketFamily = 23
	FamilyParty         PacketFamily = 24
	FamilyRefresh       PacketFamily = 25
	FamilyNPC           PacketFamily = 26
	FamilyPlayerRange   PacketFamily = 27
	FamilyNPCRange      PacketFamily = 28
	FamilyRange         PacketFamily = 29
	FamilyPaperdoll     PacketFamily = 30
	FamilyEffect        PacketFamily = 31
	FamilyTrade         PacketFamily = 32
	FamilyChest         PacketFamily = 33
	FamilyDoor          PacketFamily = 34
	FamilyMessage       PacketFamily = 35
	FamilyBank          PacketFamily = 36
	FamilyLocker        PacketFamily = 37
	FamilyBarber        PacketFamily = 38
	FamilyGuild         PacketFamily = 39
	FamilyMusic         PacketFamily = 40
	FamilySit           PacketFamily = 41
	FamilyRecover       PacketFamily = 42
	FamilyBoard         PacketFamily = 43
	FamilyCast          PacketFamily = 44
	FamilyArena         PacketFamily = 45
	FamilyPriest        PacketFamily = 46
	FamilyMarriage      PacketFamily = 47
	FamilyAdminInteract PacketFamily = 48
	FamilyCitizen       PacketFamily = 49
	FamilyQuest         PacketFamily = 50
	FamilyBook          PacketFamily = 51
	FamilyInit          PacketFamily = 255
)

// PacketAction is the first header byte of every payload.
type PacketAction byte

const (
	ActionRequest     PacketAction = 1
	ActionAccept      PacketAction = 2
	ActionReply       PacketAction = 3
	ActionRemove      PacketAction = 4
	ActionAgree       PacketAction = 5
	ActionCreate      PacketAction = 6
	ActionAdd         PacketAction = 7
	ActionPlayer      PacketAction = 8
	ActionTake        PacketAction = 9
	ActionUse         PacketAction = 10
	ActionBuy         PacketAction = 11
	ActionSell        PacketAction = 12
	ActionOpen        PacketAction = 13
	ActionClose       PacketAction = 14
	ActionMsg         PacketAction = 15
	ActionSpec        PacketAction = 16
	ActionAdmin       PacketAction = 17
	ActionList        PacketAction = 18
	ActionTell        PacketAction = 20
	ActionReport      PacketAction = 21
	ActionAnnounce    PacketAction = 22
	ActionServer      PacketAction = 23
	ActionDrop        PacketAction = 24
	ActionJunk        PacketAction = 25
	ActionObtain      PacketAction = 26
	ActionGet         PacketAction = 27
	ActionKick        PacketAction = 28
	ActionRank        PacketAction = 29
	ActionTargetSelf  PacketAction = 30
	ActionTargetOther PacketAction = 31
	ActionTargetGroup PacketAction = 33
	ActionDialog      PacketAction = 34
	ActionPing        PacketAction = 240
	ActionPong        PacketAction = 241
	ActionNet3        PacketAction = 242
	ActionInit        PacketAction = 255
)

func (f PacketFamily) String() string {
	switch f {
	case FamilyConnection:
		return "Connection"
	case FamilyAccount:
		return "Account"
	case FamilyCharacter:
		return "Character"
	case FamilyLogin:
		return "Login"
	case FamilyWelcome:
		return "Welcome"
	case FamilyWalk:
		return "Walk"
	case FamilyFace:
		return "Face"
	case FamilyChair:
		return "Chair"
	case FamilyEmote:
		return "Emote"
	case FamilyAttack:
		return "Attack"
	case FamilySpell:
		return "Spell"
	case FamilyShop:
		return "Shop"
	case FamilyItem:
		return "Item"
	case FamilyStatSkill:
		return "StatSkill"
	case FamilyGlobal:
		return "Global"
	case FamilyTalk:
		return "Talk"
	case FamilyWarp:
		return "Warp"
	case FamilyAppear:
		return "Appear"
	case FamilyJukebox:
		return "Jukebox"
	case FamilyPlayers:
		return "Players"
	case FamilyAvatar:
		return "Avatar"
	case FamilyParty:
		return "Party"
	case FamilyRefresh:
		return "Refresh"
	case FamilyNPC:
		return "NPC"
	case FamilyPlayerRange:
		return "PlayerRange"
	case FamilyNPCRange:
		return "NPCRange"
	case FamilyRange:
		return "Range"
	case FamilyPaperdoll:
		return "Paperdoll"
	case FamilyEffect:
		return "Effect"
	case FamilyTrade:
		return "Trade"
	case FamilyChest:
		return "Chest"
	case FamilyDoor:
		return "Door"
	case FamilyMessage:
		return "Message"
	case FamilyBank:
		return "Bank"
	case FamilyGuild:
		return "Guild"
	case FamilySit:
		return "Sit"
	case FamilyRecover:
		return "Recover"
	case FamilyBoard:
		return "Board"
	case FamilyCast:
		return "Cast"
	case FamilyArena:
		return "Arena"
	case FamilyPriest:
		return "Priest"
	case FamilyMarriage:
		return "Marriage"
	case FamilyAdminInteract:
		return "AdminInteract"
	case FamilyQuest:
		return "Quest"
	case FamilyInit:
		return "Init"
	default:
		return "Unknown"
	}
}
