// Package prompts holds the localized prompts, email bodies and static
// fallback content used by the generation pipeline.
package prompts

import (
	"fmt"
	"strings"
	"time"

	"github.com/updateme/engine/internal/core/domain/subscriber"
)

// NewsQuery is the canonical query behind every weekly summary.
const NewsQuery = "Latest technology and AI news this week, top 5 most important news"

// Weekly and welcome subjects per language.
const (
	WeeklySubjectEN  = "Your Weekly Tech Update - UpdateMe"
	WeeklySubjectES  = "UpdateMe: Tu resumen semanal de tecnología e IA"
	WelcomeSubjectEN = "Welcome to UpdateMe!"
	WelcomeSubjectES = "¡Bienvenido a UpdateMe!"
)

var monthsES = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// FormatDate renders t the way each language writes a date in prose.
func FormatDate(t time.Time, lang subscriber.Language) string {
	if lang.Normalize() == subscriber.LanguageEN {
		return t.Format("January 02, 2006")
	}
	return fmt.Sprintf("%02d de %s de %d", t.Day(), monthsES[t.Month()-1], t.Year())
}

func WeeklySubject(lang subscriber.Language) string {
	if lang.Normalize() == subscriber.LanguageEN {
		return WeeklySubjectEN
	}
	return WeeklySubjectES
}

func WelcomeSubject(lang subscriber.Language) string {
	if lang.Normalize() == subscriber.LanguageEN {
		return WelcomeSubjectEN
	}
	return WelcomeSubjectES
}

func languageName(lang subscriber.Language) string {
	if lang.Normalize() == subscriber.LanguageEN {
		return "English"
	}
	return "español"
}

// NewsSummary is the system prompt that turns search findings into a newsletter body.
func NewsSummary(lang subscriber.Language) string {
	lang = lang.Normalize()
	return fmt.Sprintf(`Eres un asistente especializado en crear boletines informativos profesionales.
Tu tarea es generar un boletín que resuma las 5 noticias más importantes y relevantes
sobre tecnología e inteligencia artificial de la última semana.

Para cada noticia, incluye:
1. Un título claro y conciso
2. Un resumen de 2-3 oraciones que explique la noticia
3. La fuente de la noticia (publicación reconocida)
4. La fecha aproximada de publicación (dentro de la última semana)

Las noticias deben estar ordenadas por relevancia e impacto global.
Prioriza fuentes confiables como TechCrunch, Wired, MIT Technology Review,
The Verge, BBC Technology, CNN Tech, entre otras.

Formatea tu respuesta como un correo electrónico profesional que incluya:
- Las noticias numeradas claramente
- Una breve conclusión

Usa un tono profesional pero accesible. NO incluyas hiperenlaces en tu respuesta,
solo menciona las fuentes.

Hazlo compatible con formato HTML para correos electrónicos.

Aunque sea un mensaje profesional, no incluyas saludo ni despedida.

IMPORTANTE: Genera el contenido en %s (%s).`, strings.ToUpper(string(lang)), languageName(lang))
}

// WebSearch is the system prompt that merges raw search results into an answer.
func WebSearch(lang subscriber.Language) string {
	lang = lang.Normalize()
	name := "español"
	if lang == subscriber.LanguageEN {
		name = "inglés"
	}
	return fmt.Sprintf(`Combina y resume los resultados de búsqueda web a continuación para proporcionar
una respuesta completa y coherente a la consulta del usuario.

Debes:
1. Extraer información relevante y actualizada de los resultados proporcionados
2. Citar las fuentes correctamente cuando menciones información específica
3. Asegurarte de que la información proporcionada sea precisa y esté respaldada por los resultados
4. Organizar la respuesta de manera lógica y coherente

Utiliza un tono informativo y objetivo. Cuando corresponda, incluye fechas para mostrar
la actualidad de la información.

Si los resultados de la búsqueda no contienen información suficiente para responder
a la consulta, indica claramente las limitaciones de la respuesta.

IMPORTANTE: Genera el contenido en %s (%s).`, strings.ToUpper(string(lang)), name)
}

// WithResults appends flattened search results to a result-summarizing prompt.
func WithResults(system, results string) string {
	return system + "\n\nResultados de búsqueda:\n" + results
}

// SimulatedSearchQuery frames a query for a model answering without a search backend.
func SimulatedSearchQuery(query string) string {
	return "Búsqueda web: " + query
}

// KeywordExtraction asks for {"keyword": ...}. It is language independent.
const KeywordExtraction = `Please parse the "keyword" from user's message to be used in a Google search and output them in JSON format.
Make the keyword concise, focused, and optimized for search engines.

EXAMPLE INPUT:
What's the weather like in New York today?

EXAMPLE JSON OUTPUT:
{
    "keyword": "weather in New York"
}`

// Email wraps generated content in the salutation for the subscriber's language.
func Email(username, content string, lang subscriber.Language) string {
	if lang.Normalize() == subscriber.LanguageEN {
		return fmt.Sprintf("Hello %s,\n%s\n", username, content)
	}
	return fmt.Sprintf("Hola %s,\n\n%s\n", username, content)
}

// Fallback is the static summary used when nothing could be generated or recovered.
func Fallback(username string, lang subscriber.Language) string {
	if lang.Normalize() == subscriber.LanguageEN {
		return fmt.Sprintf(`Hello %s,

Here is a summary of the most important tech news from the past week:

1. The new version of Python 3.13 has been released with significant performance improvements.
   Source: Python.org (April 15, 2025)

2. Microsoft announces important advances in its generative AI model that improves contextual understanding.
   Source: Microsoft Research Blog (April 14, 2025)

3. The European Union approves stricter regulations for data protection in mobile applications.
   Source: European Commission (April 12, 2025)

4. Apple introduces new battery technology with 40%% longer life for its upcoming devices.
   Source: Apple Newsroom (April 13, 2025)

5. Google implements revolutionary changes to its search algorithm using advanced AI.
   Source: Google Blog (April 11, 2025)

Thank you for subscribing to UpdateMe!
`, username)
	}
	return fmt.Sprintf(`Hola %s,

Aquí tienes un resumen de las noticias tecnológicas más importantes de la última semana:

1. La nueva versión de Python 3.13 ha sido lanzada con mejoras significativas en rendimiento.
   Fuente: Python.org (15 de abril de 2025)

2. Microsoft anuncia avances importantes en su modelo de IA generativa que mejora la comprensión contextual.
   Fuente: Microsoft Research Blog (14 de abril de 2025)

3. La Unión Europea aprueba una regulación más estricta para la protección de datos en aplicaciones móviles.
   Fuente: European Commission (12 de abril de 2025)

4. Apple presenta nueva tecnología de batería con un 40%% más de duración para sus próximos dispositivos.
   Fuente: Apple Newsroom (13 de abril de 2025)

5. Google implementa cambios revolucionarios en su algoritmo de búsqueda utilizando IA avanzada.
   Fuente: Google Blog (11 de abril de 2025)

¡Gracias por suscribirte a UpdateMe!
`, username)
}
