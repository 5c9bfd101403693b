package maps

import (
	"fmt"

	"github.com/sorokya/reoserv-sub000/internal/model"
	"github.com/sorokya/reoserv-sub000/internal/protocol"
)

// Command is a message for the map actor. Commands carrying a Reply channel
// must use a buffered channel of capacity one so the actor never blocks.
type Command interface{ mapCommand() }

// Tick advances the simulation one step.
type Tick struct{}

// Enter hands a character to the map. The map owns it until Leave.
type Enter struct {
	Character *model.Character
	Conn      Sender
	WarpAnim  int
}

// Leave removes a character and returns ownership to the caller.
type Leave struct {
	PlayerID int
	WarpAnim int
	// Interact severs any in-progress trade or wedding involving the
	// leaver before the character is released.
	Reply chan *model.Character
}

// Walk requests a one-tile step.
type Walk struct {
	PlayerID  int
	Direction model.Direction
	Coords    model.Coords // client's claimed destination
	Timestamp int
}

// Face turns a character in place.
type Face struct {
	PlayerID  int
	Direction model.Direction
}

// Sit requests sitting on the floor or a chair.
type Sit struct {
	PlayerID int
	Coords   model.Coords // chair tile; ignored for floor sits
	Chair    bool
}

// Stand requests standing up.
type Stand struct {
	PlayerID int
}

// OpenDoor requests opening the door at the given tile.
type OpenDoor struct {
	PlayerID int
	Coords   model.Coords
}

// Attack swings at whatever is in weapon range along the facing direction.
type Attack struct {
	PlayerID  int
	Direction model.Direction
	Timestamp int
}

// CastSpellRequest begins a spell chant.
type CastSpellRequest struct {
	PlayerID int
	SpellID  int
	Timestamp int
}

// CastSpellSelf completes a self-targeted cast.
type CastSpellSelf struct {
	PlayerID  int
	SpellID   int
	Timestamp int
}

// CastSpellOther completes a cast on another player or an NPC.
type CastSpellOther struct {
	PlayerID  int
	SpellID   int
	TargetID  int
	TargetNpc bool
	Timestamp int
}

// CastSpellGroup completes a party-wide cast.
type CastSpellGroup struct {
	PlayerID  int
	SpellID   int
	Timestamp int
}

// DropItem places items from the inventory onto the ground.
type DropItem struct {
	PlayerID int
	ItemID   int
	Amount   int
	Coords   model.Coords
}

// PickUpItem takes a ground item into the inventory.
type PickUpItem struct {
	PlayerID  int
	ItemIndex int
}

// JunkItem destroys items from the inventory.
type JunkItem struct {
	PlayerID int
	ItemID   int
	Amount   int
}

// OpenChest requests the contents of the chest at the given tile.
type OpenChest struct {
	PlayerID int
	Coords   model.Coords
}

// TakeChestItem moves a chest slot's items into the inventory.
type TakeChestItem struct {
	PlayerID int
	Coords   model.Coords
	ItemID   int
}

// AddChestItem deposits inventory items into an open chest.
type AddChestItem struct {
	PlayerID int
	Coords   model.Coords
	ItemID   int
	Amount   int
}

// Emote plays an emote for nearby players.
type Emote struct {
	PlayerID int
	Emote    int
}

// TalkMessage is local chat, replayed to everyone in range.
type TalkMessage struct {
	PlayerID int
	Message  string
}

// PlayJukebox requests a track on the map's jukebox.
type PlayJukebox struct {
	PlayerID int
	TrackID  int
}

// RequestWedding is the priest-side request to start a ceremony.
type RequestWedding struct {
	PlayerID    int
	NpcIndex    int
	PartnerName string
}

// AcceptWedding is a betrothed answering "I do".
type AcceptWedding struct {
	PlayerID int
}

// DivorceRequest dissolves the player's marriage.
type DivorceRequest struct {
	PlayerID int
}

// Refresh resends the player's full in-range view.
type Refresh struct {
	PlayerID int
}

// RidAndSize asks for the map file revision and byte size.
type RidAndSize struct {
	Reply chan RidAndSizeReply
}

// RidAndSizeReply answers RidAndSize.
type RidAndSizeReply struct {
	Rid  [4]byte
	Size int
}

// NearbyInfo asks for everything in range of the player, for the
// post-warp refresh.
type NearbyInfo struct {
	PlayerID int
	Reply    chan NearbyReply
}

// NearbyReply lists what the player can currently see.
type NearbyReply struct {
	Characters []model.CharacterMapInfo
	Npcs       []model.NpcMapInfo
	Items      []model.ItemMapInfo
}

// CharacterSnapshot asks for a copy of one character, for saving.
type CharacterSnapshot struct {
	PlayerID int
	Reply    chan *model.Character
}

// SnapshotAll asks for copies of every character on the map, for the
// periodic save sweep.
type SnapshotAll struct {
	Reply chan []*model.Character
}

// BroadcastPacket relays a pre-built packet to every player on the map.
// The world coordinator uses it for server announcements.
type BroadcastPacket struct {
	Action protocol.PacketAction
	Family protocol.PacketFamily
	Body   []byte
	Except int // player id to skip, 0 for none
}

func (Tick) mapCommand()             {}
func (Enter) mapCommand()            {}
func (Leave) mapCommand()            {}
func (Walk) mapCommand()             {}
func (Face) mapCommand()             {}
func (Sit) mapCommand()              {}
func (Stand) mapCommand()            {}
func (OpenDoor) mapCommand()         {}
func (Attack) mapCommand()           {}
func (CastSpellRequest) mapCommand() {}
func (CastSpellSelf) mapCommand()    {}
func (CastSpellOther) mapCommand()   {}
func (CastSpellGroup) mapCommand()   {}
func (DropItem) mapCommand()         {}
func (PickUpItem) mapCommand()       {}
func (JunkItem) mapCommand()         {}
func (OpenChest) mapCommand()        {}
func (TakeChestItem) mapCommand()    {}
func (AddChestItem) mapCommand()     {}
func (Emote) mapCommand()            {}
func (TalkMessage) mapCommand()      {}
func (PlayJukebox) mapCommand()      {}
func (RequestWedding) mapCommand()   {}
func (AcceptWedding) mapCommand()    {}
func (DivorceRequest) mapCommand()   {}
func (Refresh) mapCommand()          {}
func (RidAndSize) mapCommand()       {}
func (NearbyInfo) mapCommand()       {}
func (CharacterSnapshot) mapCommand(){}
func (SnapshotAll) mapCommand()      {}
func (BroadcastPacket) mapCommand()  {}

func commandName(cmd Command) string {
	return fmt.Sprintf("%T", cmd)
}
