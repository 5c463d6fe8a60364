// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package display pushes the public queue board to browser displays over
WebSocket.

Each display connects to /display/ws and receives JSON frames:

	{"type":"board","board":{"current":{...},"others":[...],"waiting":12}}
	{"type":"announcement","announcement":{"kind":"call","text":"Panggilan untuk ...","names":[...]}}

The Hub follows voter changes on the store and re-derives the board on each
one; it also refreshes periodically so the "called ago" labels stay current.
Announcement frames carry the sentence for the browser's speech synthesis.
*/
package display
