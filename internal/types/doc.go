// Package types holds the websocket wire messages.
//
// Websocket: GET /ws?code=<room>&id=<identity>&format=json|msgpack
// JSON travels in text frames, msgpack in binary frames. Field names are the
// same in both.
//
// Client -> Server
// SelectTarget:
//   targetId: string
//   seq: number        // turn.seq the client is answering
//
// SubmitAttackRoll:
//   roll: number
//   seq: number
//
// SubmitDefendRoll:
//   roll: number
//   seq: number
//
// StartBattle: {}      // any seated fighter, room must be "ready"
//
// LeaveViewer: {}      // stop watching; the socket is closed afterwards
//
// Server -> Client
// StateSnapshot:
//   version: number
//   state: Room        // see Room below
//
// RoomClosed: {}       // the room was deleted; the socket closes next.
//                      // A restart closes with 1001 (going away) and no RoomClosed.
//
// Error:
//   error: string      // rejected action; stale actions are dropped silently
//
// Room:
//   code: string
//   displayName: string
//   status: "waiting" | "ready" | "battling" | "finished"
//   teamSize: number
//   teamA, teamB: { members: Fighter[], maxSize: number }
//   viewers: { [id]: { id, displayName } }
//   battle?: Battle    // set once the room is ready
//   testMode?: boolean // practice room against an NPC
//   creatorId: string
//   createdAt: string  // RFC 3339
//
// Fighter:
//   id, name, nickname?, theme?
//   currentHp, maxHp, damage: number
//   attackDieBonus, defendDieBonus, speed, rerollsLeft: number
//   skillFlags?: string[]
//   powers?: { id, name, description? }[]
//   npc?: boolean
//
// Battle:
//   turnQueue: { fighterId, team, speed }[]   // fixed when the room became ready
//   currentTurnIndex: number
//   roundNumber: number
//   dieSides: number
//   turn?: { seq, attackerId, attackerTeam, defenderId?, phase, attackRoll?, defendRoll? }
//          // phase: "select-target" | "rolling-attack" | "rolling-defend" | "resolving" | "finished"
//   log: { round, attackerId, defenderId, attackRoll, defendRoll, attackBonus,
//          defendBonus, damage, defenderHpAfter, eliminated, missed }[]
//   winner?: "teamA" | "teamB"
package types
