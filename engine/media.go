package engine

import (
	"context"

	"github.com/xordon/callflow/flow"
	"github.com/xordon/callflow/markup"
)

// handlePlayAudio resolves the audio source (synthesized speech, a direct
// URL, or a library media id) and plays it, then redirects the provider to
// the next node. The redirect is a provider-level continuation, not an
// in-process advance: the provider has to finish playback first.
func handlePlayAudio(ctx context.Context, call *Call, node flow.Node) (Result, error) {
	resp := markup.New()

	switch cfgString(node.Config, "audioSource", "tts") {
	case "url":
		if u := cfgString(node.Config, "audioUrl", ""); u != "" {
			resp.Add(markup.Play{URL: u})
		}
	case "library":
		mediaID := cfgString(node.Config, "mediaId", "")
		u, err := call.Deps.Media.MediaURL(ctx, call.Tenant, mediaID)
		if err != nil {
			call.Logger.Error("media lookup failed", "media", mediaID, "error", err)
		}
		if u != "" {
			resp.Add(markup.Play{URL: u})
		} else {
			resp.Add(markup.Say{Text: "Audio file not found."})
		}
	default: // tts
		resp.Add(markup.Say{
			Voice:    cfgString(node.Config, "voice", ""),
			Language: cfgString(node.Config, "language", ""),
			Text:     cfgString(node.Config, "message", "Hello."),
		})
	}

	if nextID, ok := call.nextID(node.ID, ""); ok {
		resp.Add(markup.Redirect{URL: call.Cont.Node(call.Flow.ID, nextID)})
	} else {
		resp.Add(markup.Hangup{})
	}

	return Respond{Body: resp}, nil
}

// handlePlayMusic loops hold music. Loop zero means forever, so there is no
// continuation to chain: the caller stays here until they hang up or the
// provider moves them (queue wait URLs reuse this shape).
func handlePlayMusic(_ context.Context, call *Call, node flow.Node) (Result, error) {
	musicURL := cfgString(node.Config, "musicUrl", "https://example.com/hold-music.mp3")
	return Respond{Body: markup.New(markup.Play{Loop: markup.Loop(0), URL: musicURL})}, nil
}
