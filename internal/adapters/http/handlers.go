package http

import (
	"net/http"
	"sort"

	"github.com/dkeye/Relay/internal/app/orch"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/gin-gonic/gin"
)

type RoomResponse struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"member_count"`
}

type MembersResponse struct {
	ID      domain.RoomID `json:"id"`
	Members []MemberView  `json:"members"`
}

type MemberView struct {
	SID  string `json:"sid"`
	Name string `json:"name"`
}

func handlerListRooms(o *orch.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.Rooms.List()})
	}
}

func handlerGetRoom(o *orch.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		room, ok := o.Rooms.Get(domain.RoomID(c.Param("id")))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, RoomResponse{ID: room.ID(), MemberCount: room.MemberCount()})
	}
}

// handlerRoomMembers lists members by session id and display name.
func handlerRoomMembers(o *orch.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		room, ok := o.Rooms.Get(domain.RoomID(c.Param("id")))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		snap := room.MembersSnapshot()
		members := make([]MemberView, 0, len(snap))
		for _, m := range snap {
			members = append(members, MemberView{SID: string(m.SID), Name: m.Name})
		}
		sort.Slice(members, func(i, j int) bool { return members[i].SID < members[j].SID })
		c.JSON(http.StatusOK, MembersResponse{ID: room.ID(), Members: members})
	}
}

func handlerHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func handlerIndex(o *orch.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "relay", "rooms": o.Rooms.Len()})
	}
}
