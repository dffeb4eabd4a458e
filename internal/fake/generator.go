// Package fake provides utilities for seeding the registry with random game servers for testing and development purposes.
package fake

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/lobby/internal/models"
	"github.com/woozymasta/lobby/internal/registry"
)

// GenerateServers registers count randomized servers and returns how many were accepted.
// It simulates various names, modes, versions, address families and player counts.
func GenerateServers(reg *registry.Registry, count int) int {
	names := []string{"Freight yard", "Night shift", "Cargo run", "Dockside", "Old depot", "Night owls"}
	gameVers := []string{"96", "97", "98"}
	mpVers := []string{"0.1.4", "0.1.5"}
	mods := []string{"", "weather", "weather;traffic", "bigmap"}

	added := 0
	for i := 0; i < count; i++ {
		maxPlayers := uint32(2 + rand.Intn(15))
		rec := models.Record{
			Port:               uint16(7000 + rand.Intn(1000)),
			ServerName:         fmt.Sprintf("%s #%d", names[rand.Intn(len(names))], rand.Intn(1000)),
			PasswordProtected:  rand.Float32() < 0.25,
			GameMode:           uint8(rand.Intn(3)),
			Difficulty:         uint8(rand.Intn(3)),
			TimePassed:         fmt.Sprintf("%dd %02dh %02dm 00s", rand.Intn(30), rand.Intn(24), rand.Intn(60)),
			CurrentPlayers:     uint32(rand.Intn(int(maxPlayers) + 1)),
			MaxPlayers:         maxPlayers,
			RequiredMods:       mods[rand.Intn(len(mods))],
			GameVersion:        gameVers[rand.Intn(len(gameVers))],
			MultiplayerVersion: mpVers[rand.Intn(len(mpVers))],
			ServerInfo:         "Generated server",
		}

		// 20% of servers announce themselves over IPv6
		if rand.Float32() < 0.2 {
			rec.IPv6 = fmt.Sprintf("2001:db8::%x", rand.Intn(0xffff)+1)
		} else {
			rec.IPv4 = fmt.Sprintf("%d.%d.%d.%d", rand.Intn(220)+1, rand.Intn(255), rand.Intn(255), rand.Intn(255))
		}

		if _, err := reg.Register(rec); err != nil {
			log.Warn().Err(err).Msg("Failed to generate fake server")
			continue
		}
		added++
	}

	return added
}
