// Package vertex implements capability.StructuredExtractor on Vertex AI
// Gemini models. All calls run in JSON mode at temperature zero; responses
// are decoded strictly and a malformed payload surfaces as a parse error so
// the caller's retry policy can re-ask the model.
package vertex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"cloud.google.com/go/vertexai/genai"

	"legalpipe/internal/capability"
	"legalpipe/internal/config"
	"legalpipe/internal/model"
)

const classifyPrompt = `Eres un analista de documentos legales chilenos. Clasifica el documento en exactamente una de estas categorias:
- "escritura_publica": escritura publica otorgada ante notario (constitucion, modificacion, poderes).
- "inscripcion_cbr": inscripcion en el Conservador de Bienes Raices o Registro de Comercio (fojas, numero, año).
- "publicacion_diario_oficial": extracto publicado en el Diario Oficial.
- "otros": cualquier otro documento.

Responde SOLO con un objeto JSON: {"clasificacion": "<categoria>"}

Documento %s:
%s`

const datesPrompt = `Eres un analista de documentos legales chilenos. Extrae todas las fechas del documento en formato YYYY-MM-DD, ordenadas por relevancia: primero la fecha de otorgamiento o constitucion del acto, luego las demas. Convierte fechas escritas en palabras ("quince de enero de dos mil veinte") al formato pedido.

Responde SOLO con un objeto JSON: {"fechas": ["YYYY-MM-DD", ...]}
Si no hay fechas, responde {"fechas": []}.

Documento %s:
%s`

const fieldsPrompt = `Eres un analista de documentos legales chilenos. El documento es de tipo "%s". Extrae los campos societarios presentes como un objeto JSON plano de strings. Usa estas claves cuando el dato exista y omite las que no aparezcan:
razon_social, tipo_sociedad, rut, domicilio, duracion, objeto_social, capital, forma_de_pago_capital, representante_legal, administracion, socios, notaria, notario, repertorio, fojas, numero, anio, fecha_inscripcion, fecha_publicacion, numero_diario_oficial.
Los montos se transcriben tal como aparecen. No inventes valores.

Responde SOLO con el objeto JSON.

Documento %s:
%s`

const verifyPrompt = `Eres un abogado revisando poderes societarios. Determina si el siguiente fragmento otorga la facultad indicada.

Facultad: %s (%s)
Descripcion: %s
Palabras claves: %s

Responde SOLO con un objeto JSON:
{"otorgado": true|false, "actor": "<quien recibe la facultad o vacio>", "limites": "<limites o vacio>", "restricciones": "<restricciones o vacio>", "evidencia": "<cita textual breve>", "confianza": "alta"|"media"|"baja"}

Fragmento:
%s`

// Prompts embed at most this much document text per call.
const maxPromptChars = 12000

// Client is a Vertex AI backed structured extractor. One JSON-mode model is
// shared by all extraction calls.
type Client struct {
	gen  *genai.GenerativeModel
	base *genai.Client
}

// New creates the extractor. projectID must be set; region and model come
// from configuration defaults otherwise.
func New(ctx context.Context, cfg config.VertexConfig) (*Client, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("vertex: project id and region cannot be empty")
	}

	base, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	gen := base.GenerativeModel(cfg.Model)
	gen.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	gen.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &Client{gen: gen, base: base}, nil
}

func (c *Client) Close() error {
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}

var _ capability.StructuredExtractor = (*Client)(nil)

// Classify assigns one of the known document classes.
func (c *Client) Classify(ctx context.Context, filename, text string) (model.Classification, error) {
	raw, err := c.generate(ctx, fmt.Sprintf(classifyPrompt, filename, truncate(text)))
	if err != nil {
		return "", err
	}
	var out struct {
		Clasificacion string `json:"clasificacion"`
	}
	if err := decode(raw, &out); err != nil {
		return "", err
	}
	return model.ParseClassification(out.Clasificacion), nil
}

// ExtractDates returns the document's dates ordered by relevance.
func (c *Client) ExtractDates(ctx context.Context, filename, text string) ([]string, error) {
	raw, err := c.generate(ctx, fmt.Sprintf(datesPrompt, filename, truncate(text)))
	if err != nil {
		return nil, err
	}
	var out struct {
		Fechas []string `json:"fechas"`
	}
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return out.Fechas, nil
}

// ExtractFields returns the flat field map for comparison and aggregation.
func (c *Client) ExtractFields(ctx context.Context, filename, text string, class model.Classification) (map[string]string, error) {
	raw, err := c.generate(ctx, fmt.Sprintf(fieldsPrompt, class, filename, truncate(text)))
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// VerifyPower checks one catalog power against one text chunk.
func (c *Client) VerifyPower(ctx context.Context, chunk string, f model.Facultad) (model.PowerFinding, error) {
	prompt := fmt.Sprintf(verifyPrompt,
		f.Nombre, f.Codigo, f.Descripcion, strings.Join(f.PalabrasClaves, ", "), truncate(chunk))
	raw, err := c.generate(ctx, prompt)
	if err != nil {
		return model.PowerFinding{}, err
	}
	var out model.PowerFinding
	if err := decode(raw, &out); err != nil {
		return model.PowerFinding{}, err
	}
	return out, nil
}

// generate runs one prompt and returns the concatenated text parts of the
// first candidate, with any code fences stripped.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.gen.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w: %v", model.ErrExternalService, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty model response: %w", model.ErrExternalService)
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return stripFences(strings.TrimSpace(sb.String())), nil
}

func decode(raw string, out any) error {
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("model response is not the expected JSON: %w: %v", model.ErrParse, err)
	}
	return nil
}

// stripFences removes a surrounding markdown code fence if the model added
// one despite JSON mode.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string) string {
	if len(s) <= maxPromptChars {
		return s
	}
	cut := maxPromptChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
