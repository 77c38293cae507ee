package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	agent "github.com/unrealJuanpa/llm-deep-recall"
	"github.com/unrealJuanpa/llm-deep-recall/src/display"
	"github.com/unrealJuanpa/llm-deep-recall/src/models"
	"github.com/unrealJuanpa/llm-deep-recall/src/tools"
)

var (
	flagProvider      = flag.String("provider", "ollama", "Proveedor de inferencia: ollama|openai|dummy")
	flagModel         = flag.String("model", "gemma3:latest", "Modelo a utilizar")
	flagHost          = flag.String("host", "", "URL base del endpoint (vacío: valor por defecto del proveedor)")
	flagHistoryLimit  = flag.Int("history-limit", 5, "Intercambios retenidos en el historial")
	flagMaxIterations = flag.Int("max-iterations", 5, "Límite de rondas por turno")
	flagPrimePair     = flag.Bool("prime-pair", false, "Llevar las instrucciones como par user/assistant en vez de mensaje system")
	flagStrictJSON    = flag.Bool("strict-json", false, "Protocolo estricto: un único objeto JSON {\"function\": ...} por respuesta")
	flagAcceptProse   = flag.Bool("accept-prose", false, "Aceptar la primera respuesta sin invocación como respuesta final")
	flagStream        = flag.Bool("stream", false, "Mostrar la respuesta del modelo según llega")
	flagTrace         = flag.Bool("trace", false, "Mostrar la traza de rondas e invocaciones")
	flagNoColor       = flag.Bool("no-color", false, "Desactivar colores en la salida")
)

func main() {
	_ = godotenv.Load()
	flag.Parse()

	color := !*flagNoColor && os.Getenv("NO_COLOR") == ""
	disp := display.New(os.Stdout, color, *flagTrace)

	model, err := models.NewChatModel(*flagProvider, *flagHost, *flagModel)
	if err != nil {
		log.Fatalf("no se pudo crear el modelo: %v", err)
	}

	toolset := tools.Arithmetic()
	toolset = append(toolset, tools.FechaActual(), tools.DescargarURL(nil))
	if searcher, ok := model.(tools.Searcher); ok {
		toolset = append(toolset, tools.BuscarWeb(searcher))
	}

	var onDelta func(string)
	if *flagStream {
		onDelta = disp.Delta
	}

	ag, err := agent.New(agent.Options{
		Model:              model,
		HistoryLimit:       *flagHistoryLimit,
		MaxIterations:      *flagMaxIterations,
		Tools:              toolset,
		AcceptProseAnswer:  *flagAcceptProse,
		StrictJSONProtocol: *flagStrictJSON,
		PrimePair:          *flagPrimePair,
		Trace:              disp.Trace,
		Stream:             *flagStream,
		OnDelta:            onDelta,
	})
	if err != nil {
		log.Fatalf("no se pudo crear el agente: %v", err)
	}

	disp.Note("Agente iniciado. Puedes decir cosas como '¿cuánto es 7 por 8?' o 'suma 2 y 5'.")
	disp.Note("Comandos: exit/salir para terminar, clear/limpiar para reiniciar, /info, /tools, /model <nombre>.")

	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	for {
		fmt.Print(disp.Prompt())
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "exit", "salir", "quit":
			return
		case "clear", "limpiar":
			ag.ClearHistory()
			disp.Note("Historial reiniciado.")
			continue
		case "/info":
			for k, v := range ag.Info() {
				disp.Note(fmt.Sprintf("%s: %v", k, v))
			}
			continue
		case "/tools":
			docs := ag.ToolDocs()
			if docs == "" {
				disp.Note("Sin herramientas registradas.")
				continue
			}
			for _, doc := range strings.Split(strings.TrimRight(docs, "\n"), "\n") {
				disp.Note(doc)
			}
			continue
		}
		if name, ok := strings.CutPrefix(line, "/model "); ok {
			if err := ag.ChangeModel(strings.TrimSpace(name)); err != nil {
				disp.Error(err)
			} else {
				disp.Note("Modelo cambiado a " + strings.TrimSpace(name))
			}
			continue
		}

		answer, err := ag.SendMessage(ctx, line)
		if err != nil {
			disp.Error(err)
			continue
		}
		if *flagStream {
			fmt.Println()
		}
		disp.Answer(answer)
	}

	if err := scanner.Err(); err != nil {
		log.Fatalf("error leyendo la entrada: %v", err)
	}
}
