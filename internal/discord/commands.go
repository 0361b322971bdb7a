package discord

import (
	"github.com/bwmarrin/discordgo"
)

const (
	GroupName     = "servermanager"
	optionCommand = "command"

	replyStop     = "Stopping the server..."
	replyQuit     = "Quiting the server manager..."
	replySend     = "Sending the input to the process..."
	replyNoGuild  = "This command can only be used in a server."
	replyNoRights = "You are not allowed to manage the server."
	replyUnknown  = "Unknown command."
)

// managePermission is required to use the command group.
const managePermission int64 = discordgo.PermissionModerateMembers

// Command is the slash command group registered on Ready.
func Command() *discordgo.ApplicationCommand {
	perm := managePermission
	dm := false
	return &discordgo.ApplicationCommand{
		Name:                     GroupName,
		Description:              "Manage your server",
		DefaultMemberPermissions: &perm,
		DMPermission:             &dm,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "stop",
				Description: "Stops the server from running",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "quit",
				Description: "Quits the server manager",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "send",
				Description: "Send a command to the server",
				Options: []*discordgo.ApplicationCommandOption{
					{
						Type:        discordgo.ApplicationCommandOptionString,
						Name:        optionCommand,
						Description: "The command to send to the server",
						Required:    true,
					},
				},
			},
		},
	}
}

// dispatch decides the reply to an interaction and the action to run after it.
// action is nil when nothing must happen.
func dispatch(i *discordgo.InteractionCreate, actions Actions) (reply string, action func()) {
	if i.GuildID == "" || i.Member == nil {
		return replyNoGuild, nil
	}
	if i.Member.Permissions&managePermission == 0 {
		return replyNoRights, nil
	}
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return replyUnknown, nil
	}
	sub := data.Options[0]
	switch sub.Name {
	case "stop":
		return replyStop, actions.Stop
	case "quit":
		return replyQuit, actions.Quit
	case "send":
		for _, o := range sub.Options {
			if o.Name == optionCommand {
				text := o.StringValue()
				return replySend, func() { actions.Send(text) }
			}
		}
	}
	return replyUnknown, nil
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand || i.ApplicationCommandData().Name != GroupName {
		return
	}
	reply, action := dispatch(i, b.actions)
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: reply},
	})
	if err != nil {
		b.log.Warn("interaction response failed", "error", err)
	}
	if action != nil {
		go action()
	}
}
