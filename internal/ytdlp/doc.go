// Package ytdlp shells out to the yt-dlp binary to download videos.
package ytdlp
