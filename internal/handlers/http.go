package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"packetgen/internal/engine"
)

const maxUploadSize = 100 << 20 // 100 MB

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, eng *engine.Engine) {
	mux.HandleFunc("/", handleStatus(eng))

	// WebSocket endpoint
	mux.HandleFunc("/ws", HandleWebSocket(eng))

	// PCAP file upload
	mux.HandleFunc("/api/upload", handleUpload(eng))
}

func handleStatus(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		ifaces, err := eng.GetInterfaces()
		if err != nil {
			ifaces = nil
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "packetgen\n\nws:        /ws\nupload:    POST /api/upload\n\ninterfaces (%d):\n", len(ifaces))
		for _, i := range ifaces {
			fmt.Fprintf(w, "  %s  %s\n", i.Name, i.Description)
		}
	}
}

func handleUpload(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			http.Error(w, "File too large (max 100MB)", http.StatusBadRequest)
			return
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "Missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		// Write to temp file (gopacket/pcap needs a file path)
		tmpFile, err := os.CreateTemp(os.TempDir(), "packetgen-*.pcap")
		if err != nil {
			http.Error(w, "Failed to create temp file", http.StatusInternalServerError)
			return
		}
		tmpPath := tmpFile.Name()
		defer os.Remove(tmpPath)

		if _, err := io.Copy(tmpFile, file); err != nil {
			tmpFile.Close()
			http.Error(w, "Failed to save file", http.StatusInternalServerError)
			return
		}
		tmpFile.Close()

		// Stop any active capture before loading file
		eng.StopCapture()

		if err := eng.LoadPcapFile(tmpPath); err != nil {
			http.Error(w, "Failed to read pcap: "+err.Error(), http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}
