package transit

import "strings"

// MatchesRoute decide si una ruta almacenada (originName/destName) responde
// a la búsqueda del usuario (originQuery/destQuery). El criterio es
// contención de subcadena sin distinguir mayúsculas, en cualquiera de los
// dos sentidos, porque los selectores de la app y los nombres guardados no
// siempre coinciden letra a letra: "Vilafranca" debe encontrar
// "Vilafranca del Penedès Estació" y viceversa.
//
// Este es el único punto del sistema donde se implementa ese criterio;
// cualquier filtrado por nombre de origen/destino debe pasar por aquí.
func MatchesRoute(originQuery, destQuery, originName, destName string) bool {
	return containsFold(originName, originQuery) && containsFold(destName, destQuery)
}

func containsFold(a, b string) bool {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	return strings.Contains(a, b) || strings.Contains(b, a)
}
